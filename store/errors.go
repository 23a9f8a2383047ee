package store

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	// ErrNotFound is returned when no student has the requested id.
	ErrNotFound = errors.New("student not found")
	// ErrValidation is the target for errors.Is on any *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateEmail is returned when another student already owns the email.
	ErrDuplicateEmail = errors.New("email already registered")
)

// ValidationError carries per-field validation messages keyed by JSON name.
type ValidationError struct {
	Fields validation.Errors
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "validation failed: " + e.Fields.Error()
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
