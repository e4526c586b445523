package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrStepRequired indicates that no step function was supplied
	ErrStepRequired = errors.New("step must be callable")

	// ErrNotConnected indicates that the runner has no live NATS connection
	ErrNotConnected = errors.New("not connected to NATS")

	// ErrInvalidSubject indicates that the provided subject is invalid
	ErrInvalidSubject = errors.New("invalid subject")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrNoResponse indicates that no response was received for a request
	ErrNoResponse = errors.New("no response received")

	// ErrScriptNotCallable indicates that a script did not evaluate to a function
	ErrScriptNotCallable = errors.New("script must evaluate to a function")
)

// Well-known error codes used by the SDK
const (
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeScriptFailure   = "SCRIPT_FAILURE"
	CodeTransport       = "TRANSPORT"
)

// Error represents a structured SDK error
type Error struct {
	// Code is a machine-readable error code
	Code string

	// Message is a human-readable error message
	Message string

	// Err is the underlying error, if any
	Err error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new SDK error
func NewError(code, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// InvalidArgument creates an invalid-argument error with the given message
func InvalidArgument(message string, err error) *Error {
	return NewError(CodeInvalidArgument, message, err)
}

// IsInvalidArgument checks if an error carries the invalid-argument code
func IsInvalidArgument(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == CodeInvalidArgument
	}
	return false
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
