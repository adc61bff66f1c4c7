package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize/english"

	"github.com/roach88/oced/internal/search"
)

// Process exit codes. Every command maps its result onto these; scripts
// branch on them rather than on output text.
const (
	ExitSuccess           = 0 // valid instance, witness found, or assertion holds
	ExitFailure           = 1 // violations, a counterexample, or failed scenarios
	ExitCommandError      = 2 // unusable input: schema, instance, bound, paths
	ExitNoneWithinBound   = 3 // whole bound explored, no witness
	ExitResourceExhausted = 4 // step budget, timeout or cancellation stopped a search
)

// outcomeExit maps a search outcome to an exit code. A found witness and a
// holding assertion are successes; the other two found/none cases invert
// between goal kinds.
func outcomeExit(kind search.GoalKind, out *search.Outcome) error {
	switch out.Status {
	case search.StatusFound:
		if kind == search.GoalAssertion {
			return NewExitError(ExitFailure, fmt.Sprintf("counterexample to %q found", out.Goal))
		}
		return nil
	case search.StatusNoneWithinBound:
		if kind == search.GoalAssertion {
			return nil
		}
		return NewExitError(ExitNoneWithinBound, fmt.Sprintf("no witness for %q within %s", out.Goal, out.Bound))
	default:
		return NewExitError(ExitResourceExhausted, out.Reason)
	}
}

// violationsExit fails with ExitFailure when total is positive.
func violationsExit(total int) error {
	if total == 0 {
		return nil
	}
	return NewExitError(ExitFailure, english.Plural(total, "violation", "")+" found")
}

// scenariosExit fails with ExitFailure when any scenario failed.
func scenariosExit(failed int) error {
	if failed == 0 {
		return nil
	}
	return NewExitError(ExitFailure, english.Plural(failed, "scenario", "")+" failed")
}

// ExitError carries the exit code a command should terminate with.
type ExitError struct {
	Code    int
	Message string
	Err     error // optional cause
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError returns an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns an ExitError that wraps err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns the code of the first ExitError in err's chain, and
// ExitFailure for any other error.
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
	Data   any       `json:"data,omitempty"`  // report or summary
	Error  *CLIError `json:"error,omitempty"` // set when Status is "error"
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // E-code, or the first violation code for validate
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

	// Human-readable text output
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

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
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

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
