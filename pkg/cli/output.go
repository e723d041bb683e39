package cli

import (
	"errors"
	"fmt"
)

// Exit codes for CLI commands. A completed run exits with the code
// harness.ExitCodeFor derives from its overall status.
const (
	ExitSuccess = 0 // Successful execution
	ExitFailure = 1 // Command or orchestration error
)

// ExitError represents an error with a specific exit code.
// An ExitError without message and cause is silent: the process exits
// with Code and prints nothing.
type ExitError struct {
	Code    int    // Exit code
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	case e.Message != "":
		return e.Message
	default:
		return fmt.Sprintf("exit status %d", e.Code)
	}
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Silent reports whether the error carries only an exit code.
func (e *ExitError) Silent() bool {
	return e.Message == "" && e.Err == nil
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitSuccess for nil and ExitFailure if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// ShouldPrint reports whether main should print err.
func ShouldPrint(err error) bool {
	if err == nil {
		return false
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return !exitErr.Silent()
	}
	return true
}
