// Package common defines shared constants and sentinel errors used across
// repository, service and transport layers. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorValidation = errors.New("validation error")

	// Identity errors.
	ErrDuplicateIdentity  = errors.New("user already exists")
	ErrCredentialMismatch = errors.New("invalid email or password")
	ErrIdentityNotFound   = errors.New("user not found")

	// Token errors.
	ErrTokenMissing          = errors.New("token missing")
	ErrTokenInvalidSignature = errors.New("invalid token")
	ErrTokenExpired          = errors.New("token expired")

	// Refresh store errors.
	ErrRefreshNotCurrent = errors.New("refresh token is not current")
	ErrStoreUnavailable  = errors.New("refresh store unavailable")
)
