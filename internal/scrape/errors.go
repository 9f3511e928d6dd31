package scrape

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies an upstream or engine failure.
type Kind string

// Error kinds in the outward taxonomy.
const (
	KindAuthentication     Kind = "AUTHENTICATION_ERROR"
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindTwoFactorRequired  Kind = "TWO_FACTOR_REQUIRED"
	KindLoginRequired      Kind = "LOGIN_REQUIRED"
	KindProfileNotFound    Kind = "PROFILE_NOT_FOUND"
	KindPostNotFound       Kind = "POST_NOT_FOUND"
	KindPrivateProfile     Kind = "PRIVATE_PROFILE"
	KindRateLimited        Kind = "RATE_LIMIT_EXCEEDED"
	KindUnavailable        Kind = "SERVICE_UNAVAILABLE"
	KindValidation         Kind = "VALIDATION_ERROR"
	KindInternal           Kind = "INTERNAL_ERROR"
)

// HTTPStatus maps a kind to the status surfaced by the API layer.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindAuthentication, KindInvalidCredentials, KindTwoFactorRequired, KindLoginRequired:
		return http.StatusUnauthorized
	case KindProfileNotFound, KindPostNotFound:
		return http.StatusNotFound
	case KindPrivateProfile:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a kind plus a message safe to surface to clients. Credentials
// and session tokens must never appear in Message.
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter time.Duration
	cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.cause
}

// NewError builds an Error of the given kind.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError builds an Error of the given kind around a cause.
func WrapError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// KindOf extracts the kind from any error, defaulting to KindInternal.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// IsRateLimited reports whether err is a distinguishable rate-limit signal.
func IsRateLimited(err error) bool {
	return KindOf(err) == KindRateLimited
}
