package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// Process exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the site did not compile or the rules are invalid
	ExitCommandError = 2 // the command could not run: bad flags, unreadable config, missing content dir
)

// ExitError carries the process exit code of a failed command. The
// message has already been reported to the user when it is returned.
type ExitError struct {
	Code    int
	Message string
	Err     error
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

// WrapExitError returns an ExitError caused by err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// ExitCode returns the exit code for err: ExitSuccess for nil, the code
// of the first ExitError in its chain, ExitFailure otherwise.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Envelope wraps every JSON response.
type Envelope struct {
	Status string       `json:"status"` // "ok" or "error"
	RunID  string       `json:"run_id,omitempty"`
	Data   any          `json:"data,omitempty"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail describes a failure in a JSON response.
type ErrorDetail struct {
	Code    string `json:"code"` // E001..E008
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// OutputFormatter writes command results as text or JSON.
type OutputFormatter struct {
	Format string
	Writer io.Writer

	// ErrWriter receives verbose diagnostics so they never interleave
	// with JSON on Writer. Nil means Writer.
	ErrWriter io.Writer
	Verbose   bool

	// RunID is attached to JSON responses once a compiler run has started.
	RunID string
}

func (f *OutputFormatter) json() bool { return f.Format == "json" }

func (f *OutputFormatter) encode(e Envelope) error {
	e.RunID = f.RunID
	return json.NewEncoder(f.Writer).Encode(e)
}

// Success reports a result. Text mode prints data with its default
// format; commands with richer text output write it themselves.
func (f *OutputFormatter) Success(data any) error {
	if f.json() {
		return f.encode(Envelope{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error reports a failure with an error code.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.json() {
		return f.encode(Envelope{
			Status: "error",
			Error:  &ErrorDetail{Code: code, Message: message, Details: details},
		})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err under message and returns the ExitError the command
// should return. The error code and exit code follow from err's type.
func (f *OutputFormatter) Fail(message string, err error) error {
	exit, code := classify(err)
	_ = f.Error(code, fmt.Sprintf("%s: %v", message, err), nil)
	return WrapExitError(exit, message, err)
}

// VerboseLog prints a diagnostic line when verbose output is on.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.diag(), format+"\n", args...)
}

func (f *OutputFormatter) diag() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// Marks returns the success and failure glyphs. Writers that are not a
// terminal get plain ASCII.
func (f *OutputFormatter) Marks() (ok, fail string) {
	if file, isFile := f.Writer.(*os.File); isFile && isatty.IsTerminal(file.Fd()) {
		return "✓", "✗"
	}
	return "OK", "FAIL"
}
