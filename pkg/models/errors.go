package models

import (
	"errors"
	"fmt"
)

// Error classes. Every setup-time failure wraps exactly one of these so the
// caller can decide how to exit without string matching.
var (
	// ErrConfiguration means a required input or companion input is missing.
	ErrConfiguration = errors.New("configuration error")

	// ErrValidation means an input refers to something the graph does not contain.
	ErrValidation = errors.New("validation error")

	// ErrComputation means the data is degenerate for the computation.
	ErrComputation = errors.New("computation error")
)

// ValidationError describes a single invalid input value
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

func (ve ValidationError) Error() string {
	if ve.Value != "" {
		return fmt.Sprintf("validation error in field '%s': %s (value: %s)", ve.Field, ve.Message, ve.Value)
	}
	return fmt.Sprintf("validation error in field '%s': %s", ve.Field, ve.Message)
}

// Unwrap lets errors.Is match ErrValidation.
func (ve ValidationError) Unwrap() error { return ErrValidation }

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}
	return fmt.Sprintf("%d validation errors: %s (and %d more)", len(ve), ve[0].Error(), len(ve)-1)
}

func (ve ValidationErrors) Unwrap() error { return ErrValidation }

// Configurationf builds an error wrapping ErrConfiguration.
func Configurationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// Computationf builds an error wrapping ErrComputation.
func Computationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrComputation, fmt.Sprintf(format, args...))
}

// WrapConfiguration marks err as a configuration error; err stays
// reachable through errors.Is and errors.As.
func WrapConfiguration(err error, context string) error {
	return fmt.Errorf("%w: %s: %w", ErrConfiguration, context, err)
}
