package launcher

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of launch errors
type ErrorType int

const (
	// ErrorTypeUnknown represents an unknown error
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeInitialization represents failures preparing the data directories
	ErrorTypeInitialization
	// ErrorTypeSpawn represents a backend that could not be started
	ErrorTypeSpawn
	// ErrorTypeWindow represents a UI host that could not be opened or revealed
	ErrorTypeWindow
	// ErrorTypeReadiness represents polling that ended without the backend answering
	ErrorTypeReadiness
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeInitialization:
		return "initialization"
	case ErrorTypeSpawn:
		return "spawn"
	case ErrorTypeWindow:
		return "window"
	case ErrorTypeReadiness:
		return "readiness"
	default:
		return "unknown"
	}
}

// Error represents a structured launch error with type information
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsType checks if the error is of a specific type
func (e *Error) IsType(errorType ErrorType) bool {
	return e.Type == errorType
}

// NewErrorWithCause creates a new Error with the specified type, message, and underlying cause
func NewErrorWithCause(errorType ErrorType, message string, cause error) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// IsSpawnError reports whether err means the backend could not be started.
func IsSpawnError(err error) bool {
	var launchErr *Error
	return errors.As(err, &launchErr) && launchErr.IsType(ErrorTypeSpawn)
}
