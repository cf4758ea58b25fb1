package service

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthFailed is satisfied by every failure that ends the session.
	ErrAuthFailed = errors.New("authentication failed")

	ErrMissingCredentials = fmt.Errorf("%w: no stored credentials", ErrAuthFailed)
	ErrRefreshRejected    = fmt.Errorf("%w: token refresh rejected", ErrAuthFailed)

	ErrTransport = errors.New("transport failure")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrMissingField       = errors.New("missing required field")
)

// RefreshError is returned when /auth/refresh answers with a non-2xx status.
type RefreshError struct {
	StatusCode int
	Status     string
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("token refresh rejected: %s", e.Status)
}

func (e *RefreshError) Unwrap() error {
	return ErrRefreshRejected
}
