package errors

import (
	"errors"
	"fmt"
)

// Exit codes for labctl
const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitRemote       = 2
	ExitTransport    = 3
	ExitValidation   = 4
	ExitNoSession    = 5
	ExitConfigError  = 6
	ExitDecode       = 7
	ExitCancelled    = 8
)

// LabError is the base error type for labctl
type LabError struct {
	Code    int
	Message string
	Status  int
	Cause   error
}

func (e *LabError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *LabError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code for this error
func (e *LabError) ExitCode() int {
	return e.Code
}

// New creates a new LabError
func New(code int, message string) *LabError {
	return &LabError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a LabError
func Wrap(code int, message string, cause error) *LabError {
	return &LabError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Remote returns an error for a non-2xx API response. The message is the
// server's detail text, or the HTTP status text when no detail was sent.
func Remote(status int, message string) *LabError {
	return &LabError{
		Code:    ExitRemote,
		Message: message,
		Status:  status,
	}
}

// Decode returns an error for a response body that does not match its schema
func Decode(what string, cause error) *LabError {
	return Wrap(ExitDecode, fmt.Sprintf("decoding %s", what), cause)
}

// Transport returns an error for network and websocket failures
func Transport(message string, cause error) *LabError {
	return Wrap(ExitTransport, message, cause)
}

// Validation returns an error for input validation failures
func Validation(message string) *LabError {
	return New(ExitValidation, message)
}

// NoSession returns the error used when no session id can be resolved
func NoSession() *LabError {
	return New(ExitNoSession, "no active session")
}

// ConfigError returns an error for configuration issues
func ConfigError(message string, cause error) *LabError {
	return Wrap(ExitConfigError, message, cause)
}

// Cancelled returns an error for an action the user declined
func Cancelled(action string) *LabError {
	return New(ExitCancelled, fmt.Sprintf("%s cancelled", action))
}

// LabNotLoaded returns an error for operations that need a loaded lab
func LabNotLoaded() *LabError {
	return New(ExitGeneralError, "no lab loaded")
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	var labErr *LabError
	if errors.As(err, &labErr) {
		return labErr.ExitCode()
	}
	return ExitGeneralError
}

// HTTPStatus returns the HTTP status carried by a remote error, or 0.
func HTTPStatus(err error) int {
	var labErr *LabError
	if errors.As(err, &labErr) {
		return labErr.Status
	}
	return 0
}

// IsCancelled reports whether err is a declined confirmation.
func IsCancelled(err error) bool {
	return GetExitCode(err) == ExitCancelled
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
