package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain layer operations.
var (
	// ErrUnknownTaskType indicates an unrecognized summarization task type
	ErrUnknownTaskType = errors.New("unknown task type")

	// ErrUnknownSourceKind indicates an unrecognized document source kind
	ErrUnknownSourceKind = errors.New("unknown source kind")
)

// ValidationError represents a validation error with detailed field information.
// It implements the error interface and provides context about which field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}
