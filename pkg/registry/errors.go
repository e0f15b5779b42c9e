package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownType indicates a telemetry type that is not registered
	ErrUnknownType = errors.New("unknown type")

	// ErrTemplateNotFound indicates a command without a registered template
	ErrTemplateNotFound = errors.New("template not found")

	// ErrMissingParameter indicates a required command parameter was not supplied
	ErrMissingParameter = errors.New("missing parameter")

	// ErrUnknownParameter indicates a command parameter absent from the template
	ErrUnknownParameter = errors.New("unknown parameter")

	// ErrParameterType indicates a command parameter of the wrong primitive type
	ErrParameterType = errors.New("invalid parameter type")

	// ErrNotAllowed indicates a value outside its declared enum
	ErrNotAllowed = errors.New("value not allowed")

	// ErrValueType indicates a telemetry value of the wrong data type
	ErrValueType = errors.New("invalid value type")

	// ErrOutOfRange indicates a telemetry value outside its declared range
	ErrOutOfRange = errors.New("value out of range")

	// ErrInvalidDefinition indicates a malformed telemetry type or command template
	ErrInvalidDefinition = errors.New("invalid definition")
)

// ValidationError is a rejected value or command. Reason is the stable,
// human-readable explanation reported to clients; Kind is one of the
// sentinel errors above so callers can use errors.Is.
type ValidationError struct {
	Kind   error
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }
func (e *ValidationError) Unwrap() error { return e.Kind }

func reject(kind error, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// SchemaError is a failed registration. The registry keeps its previous
// definitions when one is returned.
type SchemaError struct {
	Source string
	Entry  string
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Entry != "" {
		return fmt.Sprintf("schema from %q: %s: %v", e.Source, e.Entry, e.Err)
	}
	return fmt.Sprintf("schema from %q: %v", e.Source, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }
