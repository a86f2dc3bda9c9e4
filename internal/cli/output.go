package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"thingstore"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Store failure (connection, query, driver)
	ExitCommandError = 2 // Bad flags, configuration or input
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
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

// classify maps input problems to ExitCommandError and everything else to
// ExitFailure.
func classify(message string, err error) error {
	if thingstore.IsValidationError(err) || thingstore.IsConfigError(err) {
		return WrapExitError(ExitCommandError, message, err)
	}
	return WrapExitError(ExitFailure, message, err)
}

// Result is the line printed for every service call.
type Result struct {
	Op string `json:"op"`
	ID string `json:"id"`
	OK bool   `json:"ok"`
}

func writeResult(w io.Writer, op, id string, ok bool) error {
	return json.NewEncoder(w).Encode(Result{Op: op, ID: id, OK: ok})
}

func writeThing(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
