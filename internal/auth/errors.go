package auth

import (
	"errors"

	"github.com/pyrechat/pyre-server/internal/store"
)

// Token verification failures. The session handler rejects on any of them
// but logs which one occurred.
var (
	// ErrMissingToken is returned when no token was supplied.
	ErrMissingToken = errors.New("missing token")
	// ErrMalformedToken is returned when the token cannot be decoded or its signature is invalid.
	ErrMalformedToken = errors.New("malformed token")
	// ErrExpiredToken is returned when the token is past its expiry.
	ErrExpiredToken = errors.New("expired token")
	// ErrUnknownSubject is returned when the subject is empty or names no known user.
	ErrUnknownSubject = errors.New("unknown subject")
)

var (
	// ErrInvalidCredentials is returned when username/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserDisabled is returned when a disabled account tries to log in.
	ErrUserDisabled = errors.New("user disabled")
	// ErrInvalidInput is returned when registration fields fail validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUserExists is returned when trying to register with existing username.
	ErrUserExists = store.ErrUserExists
)

// Reason returns a short label for a verification failure, suitable for logs.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingToken):
		return "missing_token"
	case errors.Is(err, ErrExpiredToken):
		return "expired_token"
	case errors.Is(err, ErrUnknownSubject):
		return "unknown_subject"
	case errors.Is(err, ErrMalformedToken):
		return "malformed_token"
	default:
		return "internal"
	}
}
