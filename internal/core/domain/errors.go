package domain

import (
	"errors"
	"fmt"
)

// Errors returned from use cases. Adapters match them with errors.Is.
var (
	ErrValidation              = errors.New("validation failed")
	ErrNotFound                = errors.New("not found")
	ErrPropertyNotFound        = fmt.Errorf("property %w", ErrNotFound)
	ErrUnitNotFound            = fmt.Errorf("unit %w", ErrNotFound)
	ErrBookingNotFound         = fmt.Errorf("booking %w", ErrNotFound)
	ErrDependencyUnavailable   = errors.New("dependency unavailable")
	ErrBookingConflict         = errors.New("booking conflicts with an existing booking")
	ErrInvalidStatusTransition = errors.New("invalid booking status transition")
)

// ValidationError describes a malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError is a shorthand used by request validators.
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// DependencyError wraps a failure of an external collaborator (database, broker).
func DependencyError(operation string, err error) error {
	return fmt.Errorf("%s: %w: %w", operation, ErrDependencyUnavailable, err)
}
