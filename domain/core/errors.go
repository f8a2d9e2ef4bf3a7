package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound          = errors.New("resource not found")
	ErrRunNotFound       = fmt.Errorf("%w: run", ErrNotFound)
	ErrUnknownGenerator  = fmt.Errorf("%w: generator", ErrNotFound)
	ErrUnknownAnalyzer   = fmt.Errorf("%w: analyzer", ErrNotFound)
	ErrParameterNotFound = fmt.Errorf("%w: parameter", ErrNotFound)

	// Validation errors
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInvalidGrid      = errors.New("invalid condition grid")
	ErrInvalidStudy     = errors.New("invalid study definition")
	ErrSchemaMismatch   = errors.New("schema mismatch")
	ErrUnboundAxis      = errors.New("axis not consumed by generator or analyzer")

	// Statistical errors
	ErrDegenerate       = errors.New("degenerate data for analysis")
	ErrInsufficientData = errors.New("insufficient data for analysis")

	// Determinism errors
	ErrNonDeterministic = errors.New("non-deterministic result")
)

// NewParameterError reports an out-of-domain value for a named parameter
func NewParameterError(name string, value interface{}, reason string) error {
	return fmt.Errorf("%w: %s=%v %s", ErrInvalidParameter, name, value, reason)
}

// NewSchemaError reports a column or field that does not match its declaration
func NewSchemaError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrSchemaMismatch, field, reason)
}

// NewGridError reports an invalid grid construction
func NewGridError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidGrid, reason)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidParameter) ||
		errors.Is(err, ErrInvalidGrid) ||
		errors.Is(err, ErrInvalidStudy) ||
		errors.Is(err, ErrSchemaMismatch) ||
		errors.Is(err, ErrUnboundAxis)
}

func IsStatisticalError(err error) bool {
	return errors.Is(err, ErrDegenerate) ||
		errors.Is(err, ErrInsufficientData)
}
