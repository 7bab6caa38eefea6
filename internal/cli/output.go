package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/glyph/internal/board"
	"github.com/roach88/glyph/internal/depgraph"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation ran but did not fully succeed (partial reconcile, validation problems)
	ExitCommandError = 2 // Command error (bad workspace, unknown card, refused transition)
)

// Error codes for the JSON error envelope.
const (
	ErrCodeGeneric           = "E001"
	ErrCodeWorkspace         = "E002"
	ErrCodeCardNotFound      = "E003"
	ErrCodeInvalidTransition = "E004"
	ErrCodeBlocked           = "E005"
	ErrCodeNotAccepted       = "E006"
	ErrCodeUnknownProject    = "E007"
	ErrCodeInvalidInput      = "E008"
	ErrCodePartialReconcile  = "E009"
	ErrCodeValidation        = "E010"
	ErrCodeScenarioFailed    = "E011"
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

// classify maps a board error to its envelope code and exit code.
func classify(err error) (string, int) {
	var partial *depgraph.PartialFailureError
	switch {
	case errors.As(err, &partial):
		return ErrCodePartialReconcile, ExitFailure
	case errors.Is(err, board.ErrCardNotFound):
		return ErrCodeCardNotFound, ExitCommandError
	case errors.Is(err, board.ErrInvalidTransition):
		return ErrCodeInvalidTransition, ExitCommandError
	case errors.Is(err, board.ErrBlocked):
		return ErrCodeBlocked, ExitCommandError
	case errors.Is(err, board.ErrNotAccepted):
		return ErrCodeNotAccepted, ExitCommandError
	case errors.Is(err, board.ErrUnknownProject):
		return ErrCodeUnknownProject, ExitCommandError
	case errors.Is(err, board.ErrTitleRequired), errors.Is(err, board.ErrNotesRequired):
		return ErrCodeInvalidInput, ExitCommandError
	default:
		return ErrCodeGeneric, ExitCommandError
	}
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
	Style     *Styler
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
	RunID  string    `json:"run_id,omitempty"`
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E002", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs data as JSON, or calls text to render it for humans.
// A nil text prints data with fmt.
func (f *OutputFormatter) Success(data any, text func(w io.Writer, s *Styler)) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
			RunID:  runIDOf(data),
		})
	}
	if text == nil {
		fmt.Fprintln(f.Writer, data)
		return nil
	}
	text(f.Writer, f.styler())
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

	fmt.Fprintf(f.Writer, "%s [%s]: %s\n", f.styler().Error("Error"), code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err in the configured format and returns the ExitError the
// command should return.
func (f *OutputFormatter) Fail(message string, err error) error {
	code, exit := classify(err)
	if outErr := f.Error(code, fmt.Sprintf("%s: %v", message, err), nil); outErr != nil {
		return outErr
	}
	return WrapExitError(exit, message, err)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

func (f *OutputFormatter) styler() *Styler {
	if f.Style == nil {
		f.Style = NewStyler(f.Writer)
	}
	return f.Style
}

// runIDOf lifts a reconcile run id into the envelope so scripts can
// correlate output with log lines.
func runIDOf(data any) string {
	switch v := data.(type) {
	case *depgraph.Report:
		if v != nil {
			return v.RunID
		}
	case *board.ReviewResult:
		if v != nil && v.Reconcile != nil {
			return v.Reconcile.RunID
		}
	}
	return ""
}
