// Package errors provides the typed error conditions shared by the tax,
// metrics and comparison packages.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Type identifies the category of error
type Type string

const (
	// TypeNotFound indicates an unknown municipality or dataset
	TypeNotFound Type = "NOT_FOUND"

	// TypeInvalidInput indicates a non-positive value, sqft or budget
	TypeInvalidInput Type = "INVALID_INPUT"

	// TypeInsufficientData indicates a municipality with no contributing sales
	TypeInsufficientData Type = "INSUFFICIENT_DATA"

	// TypeParsing indicates a malformed input file or row
	TypeParsing Type = "PARSING_ERROR"

	// TypeConfig indicates a configuration error
	TypeConfig Type = "CONFIG_ERROR"

	// TypeStorage indicates a database or snapshot store failure
	TypeStorage Type = "STORAGE_ERROR"
)

// Error represents a domain error with context
type Error struct {
	Type    Type           `json:"type"`
	Message string         `json:"message"`
	Cause   error          `json:"-"`
	Context map[string]any `json:"context,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same type, so that
// errors.Is(err, errors.New(TypeNotFound, "")) matches any not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// New creates a new error
func New(errType Type, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// Newf creates a new formatted error
func Newf(errType Type, format string, args ...any) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with context
func Wrap(errType Type, message string, cause error) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// IsType checks whether err, or any error it wraps, is of type t.
func IsType(err error, t Type) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// NotFound creates a not found error
func NotFound(resourceType, identifier string) *Error {
	return Newf(TypeNotFound, "%s not found: %s", resourceType, identifier).
		WithContext(resourceType, identifier)
}

// InvalidInput creates an invalid input error
func InvalidInput(format string, args ...any) *Error {
	return Newf(TypeInvalidInput, format, args...)
}

// InsufficientData creates an insufficient data error for a municipality
func InsufficientData(municipalityID string) *Error {
	return Newf(TypeInsufficientData, "no sales for municipality %s", municipalityID).
		WithContext("municipality", municipalityID)
}

// Parsing creates a parsing error
func Parsing(message string, cause error) *Error {
	return Wrap(TypeParsing, message, cause)
}

// Config creates a configuration error
func Config(message string, cause error) *Error {
	return Wrap(TypeConfig, message, cause)
}

// Storage creates a storage error
func Storage(message string, cause error) *Error {
	return Wrap(TypeStorage, message, cause)
}
