package models

import "time"

// OTP is a pending password-reset code stored on the user record. The code
// expires after a fixed window and tolerates a bounded number of wrong
// attempts before it is invalidated.
type OTP struct {
	Code     string `json:"code"`
	Expiry   string `json:"expiry"`
	Attempts int    `json:"attempts"`
}

// Expired reports whether the code's expiry instant lies before now.
// A malformed expiry counts as expired.
func (o *OTP) Expired(now time.Time) bool {
	t, err := time.Parse(time.RFC3339, o.Expiry)
	if err != nil {
		return true
	}
	return now.After(t)
}

// User is an account record. Timestamps are ISO-8601 strings to stay
// wire-compatible with remotely stored documents.
//
// Password holds either an encoded argon2id hash or, for accounts that
// predate hashing, the raw value a legacy client wrote. LegacyPassword is
// the retained original plaintext some historical records carry; it is
// cleared as soon as a login upgrades the account to a hashed credential.
type User struct {
	ID              string `json:"id"`
	RemoteID        string `json:"remoteId,omitempty"`
	Email           string `json:"email"`
	Username        string `json:"username"`
	Password        string `json:"password,omitempty"`
	LegacyPassword  string `json:"_originalPassword,omitempty"`
	Role            string `json:"role,omitempty"`
	IsAdmin         bool   `json:"isAdmin,omitempty"`
	Plan            Plan   `json:"plan"`
	ChecksRemaining int    `json:"checksRemaining"`
	StorageUsed     int64  `json:"storageUsed"`
	CreatedAt       string `json:"createdAt,omitempty"`
	LastModified    string `json:"lastModified,omitempty"`
	LastLogin       string `json:"lastLogin,omitempty"`
	ResetOTP        *OTP   `json:"resetPasswordOTP,omitempty"`
}

const RoleAdmin = "admin"

// Admin reports whether the user may access admin-only pages. Both the role
// string and the older boolean flag are honoured.
func (u *User) Admin() bool {
	return u.IsAdmin || u.Role == RoleAdmin
}

// Sanitized returns a copy with credential material removed, safe to hand
// to callers that only need profile data.
func (u *User) Sanitized() User {
	out := *u
	out.Password = ""
	out.LegacyPassword = ""
	out.ResetOTP = nil
	return out
}
