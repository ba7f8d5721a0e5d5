// Package common defines shared constants and sentinel errors used across
// client and server layers of gophauth. Callers should use errors.Is to
// match these values; services wrap them with a human-readable message via
// fmt.Errorf("%w: ...").
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorValidation      = errors.New("validation error")
	ErrorUnauthorized    = errors.New("unauthorized")
	ErrorTooManyAttempts = errors.New("too many attempts")
	ErrorInternal        = errors.New("internal error")

	// Token errors. These are produced by the token issuer and must not
	// leak past the session layer, which reports ErrorUnauthorized instead.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Message returns the human-readable part of an error built as
// fmt.Errorf("%w: message", sentinel). For bare sentinels it returns the
// sentinel text itself.
func Message(err error) string {
	if err == nil {
		return ""
	}
	s := err.Error()

	inner := errors.Unwrap(err)
	if multi, ok := err.(interface{ Unwrap() []error }); ok && len(multi.Unwrap()) > 0 {
		inner = multi.Unwrap()[0]
	}

	if inner != nil {
		prefix := inner.Error() + ": "
		if len(s) > len(prefix) && s[:len(prefix)] == prefix {
			return s[len(prefix):]
		}
	}
	return s
}
