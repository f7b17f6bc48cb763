package errors

import (
	"errors"
	"fmt"
)

// Failure classes shared across the auth lifecycle. Components wrap these
// with call-site context; callers branch with errors.Is.
var (
	// Device flow errors
	ErrAuthorizationPending = errors.New("authorization pending")
	ErrAuthService          = errors.New("identity provider error")
	ErrSessionExpired       = errors.New("device session expired")

	// Token errors
	ErrTokenInvalid  = errors.New("access token invalid")
	ErrRefreshFailed = errors.New("token refresh failed")

	// Storage errors
	ErrNoToken = errors.New("no token stored")

	// Chat errors
	ErrNotConnected = errors.New("chat not connected")
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
