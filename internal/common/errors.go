// Package common defines shared constants and sentinel errors used across
// client and server layers of MediaVault. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")

	// Credential errors. ErrInvalidCredentials deliberately carries no
	// detail about which verification step failed.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already used")

	// Session lifecycle errors.
	ErrNoSession      = errors.New("no session")
	ErrSessionExpired = errors.New("session expired")

	// Password-reset OTP errors.
	ErrOTPInvalid          = errors.New("invalid otp")
	ErrOTPExpired          = errors.New("otp expired")
	ErrOTPAttemptsExceeded = errors.New("otp attempt limit exceeded")

	// Validation errors (bad input, quota or plan limits).
	ErrValidation = errors.New("validation error")

	// Remote document-store errors.
	ErrRemoteUnavailable = errors.New("remote store unavailable")

	// Token lifecycle errors (docstore management API).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
