package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested record does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidStatus is returned for a status outside the active order flow
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidTransition is returned when the flow does not allow the status change
	ErrInvalidTransition = errors.New("status transition not allowed")
	// ErrForbidden is returned when the caller may not perform the action
	ErrForbidden = errors.New("forbidden")
	// ErrValidation is returned for malformed input
	ErrValidation = errors.New("validation failed")
	// ErrNotSupported is returned for operations the active order flow does not offer
	ErrNotSupported = errors.New("not supported by the current order flow")
)

// ValidationError carries a user-facing message and unwraps to ErrValidation
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap lets errors.Is match ErrValidation
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
