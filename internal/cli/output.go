package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/nodetree/internal/tree"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation rejected (not found, conflict, invalid input)
	ExitCommandError = 2 // Command error (bad arguments, storage unavailable, etc.)
)

// Error codes reported in CLIError.Code and in text error output.
const (
	ErrCodeGeneric        = "E001" // Generic/unknown error
	ErrCodeInvalidInput   = "E002" // Malformed name, key, value or argument
	ErrCodeParentNotFound = "E003" // Parent path does not resolve
	ErrCodePathConflict   = "E004" // Node path already exists
	ErrCodeNotFound       = "E005" // Node path does not resolve
	ErrCodeStorage        = "E006" // Storage open or access failure
	ErrCodeSeedInvalid    = "E007" // Seed file unreadable or rejected by schema
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
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

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E002", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// fail reports an error through the formatter and returns the matching
// ExitError.
func (f *OutputFormatter) fail(exitCode int, code, message string, err error) error {
	var details any
	if err != nil {
		details = err.Error()
	}
	_ = f.Error(code, message, details)
	return WrapExitError(exitCode, fmt.Sprintf("%s: %s", code, message), err)
}

// failOperation reports a service error. Typed tree errors are operation
// failures (exit 1); anything else is treated as a storage failure (exit 2).
func (f *OutputFormatter) failOperation(err error) error {
	var te *tree.Error
	if !errors.As(err, &te) {
		return f.fail(ExitCommandError, ErrCodeStorage, "storage error", err)
	}
	message := te.Message
	if te.Path != "" {
		message += ": " + te.Path
	}
	return f.fail(ExitFailure, ErrorCode(err), message, err)
}

// ErrorCode maps a tree error to its CLI error code.
func ErrorCode(err error) string {
	switch {
	case tree.IsInvalidInput(err):
		return ErrCodeInvalidInput
	case tree.IsParentNotFound(err):
		return ErrCodeParentNotFound
	case tree.IsPathConflict(err):
		return ErrCodePathConflict
	case tree.IsNodeNotFound(err):
		return ErrCodeNotFound
	default:
		return ErrCodeGeneric
	}
}
