package invoice

import (
	"errors"
	"fmt"
)

// Common invoice building errors
var (
	// ErrInvalidPeriod is returned when a billing period is not of the form YYYY-MM.
	ErrInvalidPeriod = errors.New("invalid billing period")

	// ErrInvalidRequest is returned when a build request is incomplete or inconsistent.
	ErrInvalidRequest = errors.New("invalid invoice request")

	// ErrInconsistentInvoice is returned by Validate when an invoice does not
	// add up to its items.
	ErrInconsistentInvoice = errors.New("inconsistent invoice")
)

// BuildError wraps errors with additional context about invoice building failures.
type BuildError struct {
	// Op is the operation that failed (e.g., "Build", "BuildAll").
	Op string

	// Err is the underlying error.
	Err error

	// ClientCode is the client the invoice was built for (if available).
	ClientCode string
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	if e.ClientCode != "" {
		return fmt.Sprintf("invoice: %s failed (client: %s): %v", e.Op, e.ClientCode, e.Err)
	}
	return fmt.Sprintf("invoice: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *BuildError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *BuildError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapBuildError wraps an error as a BuildError if it isn't already one.
func WrapBuildError(op string, err error, clientCode string) error {
	if err == nil {
		return nil
	}

	var buildErr *BuildError
	if errors.As(err, &buildErr) {
		return err // Already wrapped
	}

	return &BuildError{Op: op, Err: err, ClientCode: clientCode}
}

// ValidationError represents errors in invoice data validation.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// Is matches ErrInvalidRequest.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}
