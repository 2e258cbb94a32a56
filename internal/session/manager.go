// Package session issues, validates and tears down user sessions.
//
// A session lives in two places: a cookie-shaped value (urlencoded JSON
// carrying userId, username and expiry) and a local-store mirror of the
// resolved user. The mirror keeps the application usable for clients that
// predate the cookie scheme: when no valid cookie exists but a mirrored
// current user does, a fresh browser-session-only session is re-issued for
// it. An expired session clears both, which is an ordinary logout.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mediavault/mediavault/internal/common"
	"github.com/mediavault/mediavault/internal/localstore"
	"github.com/mediavault/mediavault/internal/logging"
	"github.com/mediavault/mediavault/internal/models"
	"github.com/mediavault/mediavault/internal/repositories/users"
)

// CookieName is the session cookie.
const CookieName = "mv_session"

// NoExpiry is the sentinel expiry of a browser-session-only login.
const NoExpiry = "session"

// DefaultTimeout is the remember-me session window.
const DefaultTimeout = 30 * 24 * time.Hour

// Session is the serialized session descriptor.
type Session struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Expiry   string `json:"expiry"`
}

// PageClass classifies pages for access gating.
type PageClass int

const (
	PagePublic PageClass = iota
	PageAuthenticated
	PageAdminOnly
)

// Decision is the outcome of gating a page request. RedirectTo is set when
// Allow is false and carries the originally requested location for the
// post-login return.
type Decision struct {
	Allow      bool
	RedirectTo string
}

const (
	loginPath = "/login"
	homePath  = "/"
)

// Manager owns the session lifecycle.
type Manager struct {
	users   users.Repository
	local   *localstore.Store
	timeout time.Duration
	log     logging.Logger
	now     func() time.Time
}

// NewManager returns a Manager. A non-positive timeout selects
// DefaultTimeout for remember-me sessions.
func NewManager(userRepo users.Repository, local *localstore.Store, timeout time.Duration, log logging.Logger) *Manager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Manager{users: userRepo, local: local, timeout: timeout, log: log, now: time.Now}
}

// Create opens a session for the user. With rememberMe the expiry is a
// fixed window from now; otherwise the NoExpiry sentinel marks a
// browser-session-only login. The user is mirrored into the local store.
func (m *Manager) Create(ctx context.Context, user *models.User, rememberMe bool) (*Session, error) {
	expiry := NoExpiry
	if rememberMe {
		expiry = m.now().Add(m.timeout).UTC().Format(time.RFC3339)
	}
	sess := &Session{UserID: user.ID, Username: user.Username, Expiry: expiry}

	doc, err := models.Encode(sess)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	if err := m.local.SetValue(localstore.KeySession, doc); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	if err := m.mirrorUser(user); err != nil {
		return nil, err
	}
	return sess, nil
}

// Validate resolves the current session to a user.
//
// A stored session must carry a future (or sentinel) expiry and a userId
// that resolves to an existing user; on success the user is re-mirrored
// and returned. A missing or malformed session falls back to a previously
// mirrored current user, for which a session-only login is re-issued. An
// expired session or an unresolvable user clears everything and returns
// common.ErrSessionExpired / common.ErrNoSession.
func (m *Manager) Validate(ctx context.Context) (*models.User, error) {
	raw := m.local.GetValue(localstore.KeySession)
	if raw == nil {
		return m.legacyFallback(ctx)
	}

	var sess Session
	if err := models.Decode(raw, &sess); err != nil || sess.UserID == "" {
		_ = m.local.DeleteValue(localstore.KeySession)
		return m.legacyFallback(ctx)
	}

	if sess.Expiry != NoExpiry {
		t, err := time.Parse(time.RFC3339, sess.Expiry)
		if err != nil || m.now().After(t) {
			if err := m.Clear(); err != nil {
				m.log.Warn(ctx, "clearing expired session failed", "error", err)
			}
			return nil, common.ErrSessionExpired
		}
	}

	user, err := m.users.GetByID(ctx, sess.UserID)
	if err != nil {
		if err := m.Clear(); err != nil {
			m.log.Warn(ctx, "clearing dangling session failed", "error", err)
		}
		return nil, common.ErrNoSession
	}

	if err := m.mirrorUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Clear tears the session down: cookie value and current-user mirror.
// Clearing an absent session is not an error.
func (m *Manager) Clear() error {
	if err := m.local.DeleteValue(localstore.KeySession); err != nil {
		return err
	}
	return m.local.DeleteValue(localstore.KeyCurrentUser)
}

// Run revalidates the session on a fixed interval until the context is
// cancelled, mirroring the periodic background check of the UI layer.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Validate(ctx); err != nil {
				m.log.Debug(ctx, "background session validation", "result", err)
			}
		}
	}
}

// Gate decides whether a user may access a page of the given class.
func (m *Manager) Gate(class PageClass, user *models.User, requestedURL string) Decision {
	switch class {
	case PageAdminOnly:
		if user == nil {
			return Decision{RedirectTo: loginRedirect(requestedURL)}
		}
		if !user.Admin() {
			return Decision{RedirectTo: homePath}
		}
	case PageAuthenticated:
		if user == nil {
			return Decision{RedirectTo: loginRedirect(requestedURL)}
		}
	}
	return Decision{Allow: true}
}

// Cookie renders the session as an HTTP cookie per the wire contract:
// urlencoded JSON value, path "/", SameSite strict, Expires only set for
// remember-me sessions.
func (m *Manager) Cookie(sess *Session) (*http.Cookie, error) {
	value, err := EncodeValue(sess)
	if err != nil {
		return nil, err
	}
	c := &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		SameSite: http.SameSiteStrictMode,
	}
	if sess.Expiry != NoExpiry {
		t, err := time.Parse(time.RFC3339, sess.Expiry)
		if err != nil {
			return nil, fmt.Errorf("invalid session expiry: %w", err)
		}
		c.Expires = t
	}
	return c, nil
}

// EncodeValue serializes a session into the cookie value form.
func EncodeValue(sess *Session) (string, error) {
	raw, err := json.Marshal(sess)
	if err != nil {
		return "", err
	}
	return url.QueryEscape(string(raw)), nil
}

// DecodeValue parses a cookie value back into a session.
func DecodeValue(value string) (*Session, error) {
	raw, err := url.QueryUnescape(value)
	if err != nil {
		return nil, fmt.Errorf("unescape session cookie: %w", err)
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("parse session cookie: %w", err)
	}
	return &sess, nil
}

func (m *Manager) legacyFallback(ctx context.Context) (*models.User, error) {
	mirror := m.local.GetValue(localstore.KeyCurrentUser)
	if mirror == nil {
		return nil, common.ErrNoSession
	}
	var user models.User
	if err := models.Decode(mirror, &user); err != nil || user.ID == "" {
		_ = m.local.DeleteValue(localstore.KeyCurrentUser)
		return nil, common.ErrNoSession
	}
	m.log.Info(ctx, "re-issuing session from mirrored current user", "user", user.ID)
	if _, err := m.Create(ctx, &user, false); err != nil {
		return nil, err
	}
	return &user, nil
}

func (m *Manager) mirrorUser(user *models.User) error {
	doc, err := models.Encode(user)
	if err != nil {
		return fmt.Errorf("encode current user: %w", err)
	}
	if err := m.local.SetValue(localstore.KeyCurrentUser, doc); err != nil {
		return fmt.Errorf("mirror current user: %w", err)
	}
	return nil
}

func loginRedirect(requestedURL string) string {
	if requestedURL == "" {
		return loginPath
	}
	return loginPath + "?next=" + url.QueryEscape(requestedURL)
}
