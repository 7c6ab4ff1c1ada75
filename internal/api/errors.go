package api

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionExpired is returned after a 401; the session has already been cleared
	ErrSessionExpired = errors.New("session expired, please login again")

	// ErrNetwork is returned when no usable response came back
	ErrNetwork = errors.New("network error, please try again")
)

// UnauthorizedError is the error for a 401 response. It matches ErrSessionExpired.
type UnauthorizedError struct {
	Message string // server message, if the body was an envelope
}

func (e *UnauthorizedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return ErrSessionExpired.Error()
}

func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrSessionExpired
}

// Error is an application-level failure: an envelope with success=false
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed (HTTP %d)", e.StatusCode)
}

// Message returns the text to show a user for err, falling back to fallback
// when err carries nothing better.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	var uerr *UnauthorizedError
	if errors.As(err, &uerr) {
		return ErrSessionExpired.Error()
	}
	if errors.Is(err, ErrNetwork) {
		return ErrNetwork.Error()
	}
	if err != nil && fallback == "" {
		return err.Error()
	}
	return fallback
}
