// Package credentials manages the user record lifecycle: registration,
// login with legacy-compatible password verification, password reset via
// one-time codes, and first-run account seeding.
package credentials

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mediavault/mediavault/internal/common"
	"github.com/mediavault/mediavault/internal/cryptox"
	"github.com/mediavault/mediavault/internal/logging"
	"github.com/mediavault/mediavault/internal/models"
	"github.com/mediavault/mediavault/internal/repositories/users"
	"github.com/mediavault/mediavault/internal/session"
)

const (
	otpDigits      = 6
	otpTTL         = 10 * time.Minute
	otpMaxAttempts = 5

	defaultChecks = 3

	seedAdminEmail    = "admin@mediavault.local"
	seedAdminUsername = "admin"
	seedTestEmail     = "test@mediavault.local"
	seedTestUsername  = "tester"
)

// Config carries the secrets the store needs. Nothing here has a baked-in
// default: every value is injected by the caller from its own configuration.
type Config struct {
	// LegacySecret is the pepper of the historical unsalted digest scheme.
	// It is only used to recognize and verify pre-existing digests; new
	// hashes never involve it.
	LegacySecret string
	// SeedAdminPassword and SeedTestPassword are the initial passwords of
	// the seeded accounts. When empty a random one is generated and logged.
	SeedAdminPassword string
	SeedTestPassword  string
}

var validate = validator.New()

type registerInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
	Username string `validate:"required,min=3"`
}

// Store verifies credentials and mutates user records through the
// repository, opening sessions on successful registration and login.
type Store struct {
	users    users.Repository
	sessions *session.Manager
	cfg      Config
	log      logging.Logger
	now      func() time.Time
}

func New(userRepo users.Repository, sessions *session.Manager, cfg Config, log logging.Logger) *Store {
	return &Store{users: userRepo, sessions: sessions, cfg: cfg, log: log, now: time.Now}
}

// Register creates a user with a hashed password, the free plan and its
// default check quota, then opens a session. An existing email fails with
// common.ErrEmailTaken.
func (s *Store) Register(ctx context.Context, email, password, username string, rememberMe bool) (*models.User, error) {
	in := registerInput{Email: email, Password: password, Username: username}
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, common.ErrEmailTaken
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("check email uniqueness: %w", err)
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC().Format(time.RFC3339)
	user := &models.User{
		ID:              uuid.NewString(),
		Email:           email,
		Username:        username,
		Password:        hash,
		Plan:            models.PlanFree,
		ChecksRemaining: defaultChecks,
		CreatedAt:       now,
		LastModified:    now,
	}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}
	if _, err := s.sessions.Create(ctx, user, rememberMe); err != nil {
		return nil, err
	}
	return user, nil
}

// Login resolves the submitted password through the ordered verification
// strategies. Any success upgrades the stored credential to the current
// hash form, drops retained plaintext, records lastLogin and opens a
// session. Every failure is the uniform common.ErrInvalidCredentials; the
// caller cannot tell which strategy (or lookup) failed.
func (s *Store) Login(ctx context.Context, email, password string, rememberMe bool) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, common.ErrInvalidCredentials
	}
	if !s.verify(password, user) {
		return nil, common.ErrInvalidCredentials
	}

	if err := s.upgradeCredential(ctx, user, password); err != nil {
		return nil, err
	}
	if _, err := s.sessions.Create(ctx, user, rememberMe); err != nil {
		return nil, err
	}
	return user, nil
}

// Logout tears down the current session.
func (s *Store) Logout(ctx context.Context) error {
	return s.sessions.Clear()
}

// RequestPasswordReset issues a numeric one-time code with a bounded
// lifetime and attempt budget, stored on the user record. Delivery is the
// caller's concern; the code is returned.
func (s *Store) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	code, err := common.MakeOTPCode(otpDigits)
	if err != nil {
		return "", fmt.Errorf("generate reset code: %w", err)
	}
	user.ResetOTP = &models.OTP{
		Code:   code,
		Expiry: s.now().Add(otpTTL).UTC().Format(time.RFC3339),
	}
	if err := s.users.Save(ctx, user); err != nil {
		return "", fmt.Errorf("save reset code: %w", err)
	}
	return code, nil
}

// VerifyOTP checks the submitted code against the pending reset state and,
// on success, replaces the password with the hash of newPassword and
// clears the reset state. A wrong code burns one attempt; exhausting the
// budget invalidates the code entirely.
func (s *Store) VerifyOTP(ctx context.Context, email, otp, newPassword string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return common.ErrOTPInvalid
	}
	if user.ResetOTP == nil {
		return common.ErrOTPInvalid
	}
	if user.ResetOTP.Expired(s.now()) {
		user.ResetOTP = nil
		if err := s.users.Save(ctx, user); err != nil {
			return err
		}
		return common.ErrOTPExpired
	}
	if user.ResetOTP.Attempts >= otpMaxAttempts {
		user.ResetOTP = nil
		if err := s.users.Save(ctx, user); err != nil {
			return err
		}
		return common.ErrOTPAttemptsExceeded
	}
	if subtle.ConstantTimeCompare([]byte(otp), []byte(user.ResetOTP.Code)) != 1 {
		user.ResetOTP.Attempts++
		exceeded := user.ResetOTP.Attempts >= otpMaxAttempts
		if exceeded {
			user.ResetOTP = nil
		}
		if err := s.users.Save(ctx, user); err != nil {
			return err
		}
		if exceeded {
			return common.ErrOTPAttemptsExceeded
		}
		return common.ErrOTPInvalid
	}

	if len(newPassword) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", common.ErrValidation)
	}
	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.Password = hash
	user.LegacyPassword = ""
	user.ResetOTP = nil
	user.LastModified = s.now().UTC().Format(time.RFC3339)
	return s.users.Save(ctx, user)
}

// ConsumeCheck spends one content check from the user's plan quota.
func (s *Store) ConsumeCheck(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.ChecksRemaining <= 0 {
		return nil, fmt.Errorf("%w: no checks remaining on the %s plan", common.ErrValidation, user.Plan)
	}
	user.ChecksRemaining--
	user.LastModified = s.now().UTC().Format(time.RFC3339)
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Seed ensures the fixed admin and test accounts exist. It is idempotent:
// accounts are looked up by email and never recreated.
func (s *Store) Seed(ctx context.Context) error {
	if err := s.seedAccount(ctx, seedAdminEmail, seedAdminUsername, s.cfg.SeedAdminPassword, models.RoleAdmin, models.PlanBusiness); err != nil {
		return err
	}
	return s.seedAccount(ctx, seedTestEmail, seedTestUsername, s.cfg.SeedTestPassword, "", models.PlanFree)
}

func (s *Store) seedAccount(ctx context.Context, email, username, password, role string, plan models.Plan) error {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("seed lookup %s: %w", email, err)
	}

	if password == "" {
		generated, err := common.MakeRandHexString(12)
		if err != nil {
			return fmt.Errorf("generate seed password: %w", err)
		}
		password = generated
		s.log.Info(ctx, "generated password for seeded account", "email", email, "password", password)
	}
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	now := s.now().UTC().Format(time.RFC3339)
	user := &models.User{
		ID:              uuid.NewString(),
		Email:           email,
		Username:        username,
		Password:        hash,
		Role:            role,
		IsAdmin:         role == models.RoleAdmin,
		Plan:            plan,
		ChecksRemaining: plan.Checks(),
		CreatedAt:       now,
		LastModified:    now,
	}
	s.log.Info(ctx, "seeding account", "email", email, "role", role)
	return s.users.Save(ctx, user)
}

// verify runs the ordered verification strategies: retained original
// plaintext, direct equality against the stored value, then the hash
// check appropriate to the stored credential version (current encoded
// hash, or the historical peppered digest).
func (s *Store) verify(input string, user *models.User) bool {
	if user.LegacyPassword != "" &&
		subtle.ConstantTimeCompare([]byte(input), []byte(user.LegacyPassword)) == 1 {
		return true
	}
	if subtle.ConstantTimeCompare([]byte(input), []byte(user.Password)) == 1 {
		return true
	}
	switch {
	case cryptox.IsEncodedHash(user.Password):
		ok, err := cryptox.VerifyPassword(user.Password, input)
		return err == nil && ok
	case cryptox.IsLegacyDigest(user.Password):
		digest := cryptox.LegacyDigest(input, s.cfg.LegacySecret)
		return subtle.ConstantTimeCompare([]byte(digest), []byte(user.Password)) == 1
	}
	return false
}

// upgradeCredential rewrites the stored credential as a current hash after
// any successful verification, dropping retained plaintext, and stamps
// lastLogin.
func (s *Store) upgradeCredential(ctx context.Context, user *models.User, password string) error {
	if !cryptox.IsEncodedHash(user.Password) || user.LegacyPassword != "" {
		hash, err := cryptox.HashPassword(password)
		if err != nil {
			return fmt.Errorf("upgrade credential: %w", err)
		}
		user.Password = hash
		user.LegacyPassword = ""
		s.log.Info(ctx, "upgraded stored credential", "user", user.ID)
	}
	user.LastLogin = s.now().UTC().Format(time.RFC3339)
	user.LastModified = user.LastLogin
	return s.users.Save(ctx, user)
}
