package errors

import (
	"errors"
	"fmt"
)

// Common error types for the bingo admin client
var (
	// Session errors
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNoRefreshToken   = errors.New("no refresh token")
	ErrSessionCleared   = errors.New("session cleared during refresh")
	ErrRefreshFailed    = errors.New("token refresh failed")
	ErrSessionClosed    = errors.New("session closed")

	// Token errors
	ErrInvalidToken    = errors.New("invalid token")
	ErrTokenExpired    = errors.New("token expired")
	ErrMissingClaims   = errors.New("token missing claims")
	ErrEmptyTokenPair  = errors.New("empty token pair")
	ErrKeysUnavailable = errors.New("token signing keys unavailable")

	// Tenant errors
	ErrTenantNotResolved = errors.New("tenant not resolved")
	ErrInvalidTemplate   = errors.New("invalid url template")

	// Request errors, matched by api.Error.Is
	ErrNetwork         = errors.New("network failure")
	ErrUnauthenticated = errors.New("authentication failure")
	ErrForbidden       = errors.New("authorization failure")
	ErrValidation      = errors.New("validation failure")
	ErrServer          = errors.New("server failure")

	// Realtime errors
	ErrNotConnected   = errors.New("not connected")
	ErrEmptyNamespace = errors.New("empty namespace")

	// General errors
	ErrNotFound = errors.New("not found")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
