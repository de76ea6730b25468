package services

import (
	"errors"
	"fmt"
)

// ErrInvalidCredentials is returned by Authenticate for an unknown username
// and for a wrong password alike.
var ErrInvalidCredentials = errors.New("invalid username or password")

// ValidationError reports a missing or unacceptable input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s is required", e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ConflictError reports that username or email is already taken.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists", e.Field)
}
