package api

import (
	"errors"
	"fmt"

	"cryptolab-go/internal/store"
)

// ValidationError is a request the caller must correct. Message is shown as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// AuthError is a failed credential check
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

var (
	ErrInvalidCredentials = &AuthError{Message: "Invalid email or password"}
	ErrUnknownAccount     = &AuthError{Message: "Invalid credentials"}
	ErrInvalidTwoFactor   = &AuthError{Message: "Invalid 2FA code"}
	ErrIncorrectPassword  = &AuthError{Message: "Incorrect password"}
	ErrCurrentPassword    = &AuthError{Message: "Current password is incorrect"}
	ErrUnauthenticated    = &AuthError{Message: "Not authorized, no token"}
	ErrTwoFactorRequired  = errors.New("2FA code required")
	ErrForbidden          = errors.New("Access denied. Admin only.")
)

// NotFoundError names the missing resource. Err is the underlying
// store.ErrNotFound chain.
type NotFoundError struct {
	Resource string
	Err      error
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

func (e *NotFoundError) Unwrap() error {
	if e.Err == nil {
		return store.ErrNotFound
	}
	return e.Err
}

// notFound replaces a store miss with a NotFoundError for resource; other
// errors pass through unchanged
func notFound(resource string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return &NotFoundError{Resource: resource, Err: err}
	}
	return err
}
