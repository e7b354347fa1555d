package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/folio/internal/ir"
)

// RuntimeError is an error raised while executing a rep's action sequence.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Rep is the rep the error concerns.
	Rep ir.Reference

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeNoSuchSnapshot: compiled content of a snapshot the rep's action
	// sequence never defines was requested.
	ErrCodeNoSuchSnapshot RuntimeErrorCode = "NO_SUCH_SNAPSHOT"

	// ErrCodeBinaryCompiledContent: textual compiled content of a binary
	// snapshot was requested.
	ErrCodeBinaryCompiledContent RuntimeErrorCode = "CANNOT_GET_COMPILED_CONTENT_OF_BINARY_ITEM"

	// ErrCodeUnknownFilter: an action names a filter that is not registered.
	ErrCodeUnknownFilter RuntimeErrorCode = "UNKNOWN_FILTER"

	// ErrCodeUnknownLayout: a layout action matches no layout.
	ErrCodeUnknownLayout RuntimeErrorCode = "UNKNOWN_LAYOUT"

	// ErrCodeWrongContentKind: a filter was given binary content where it
	// expects text, or the reverse.
	ErrCodeWrongContentKind RuntimeErrorCode = "WRONG_CONTENT_KIND"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Rep != "" {
		return fmt.Sprintf("%s: %s (rep=%s)", e.Code, e.Message, e.Rep)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsRuntimeError reports whether err wraps a RuntimeError with code. An
// empty code matches any runtime error.
func IsRuntimeError(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return code == "" || re.Code == code
	}
	return false
}

// NewNoSuchSnapshotError reports a request for an undefined snapshot.
func NewNoSuchSnapshotError(rep ir.Reference, snapshot string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeNoSuchSnapshot,
		Message: fmt.Sprintf("no snapshot %q", snapshot),
		Rep:     rep,
		Details: map[string]string{"snapshot": snapshot},
	}
}

// NewBinaryCompiledContentError reports a textual read of binary content.
func NewBinaryCompiledContentError(rep ir.Reference, snapshot string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeBinaryCompiledContent,
		Message: fmt.Sprintf("snapshot %q is binary", snapshot),
		Rep:     rep,
		Details: map[string]string{"snapshot": snapshot},
	}
}

// NewUnknownFilterError reports an unregistered filter name.
func NewUnknownFilterError(rep ir.Reference, name string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnknownFilter,
		Message: fmt.Sprintf("unknown filter %q", name),
		Rep:     rep,
		Details: map[string]string{"filter": name},
	}
}

// NewUnknownLayoutError reports a layout action matching no layout.
func NewUnknownLayoutError(rep ir.Reference, identifier string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnknownLayout,
		Message: fmt.Sprintf("no layout matches %q", identifier),
		Rep:     rep,
		Details: map[string]string{"layout": identifier},
	}
}

// NewWrongContentKindError reports a filter fed the wrong kind of content.
func NewWrongContentKindError(rep ir.Reference, filter, want, got string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeWrongContentKind,
		Message: fmt.Sprintf("filter %q expects %s content, got %s", filter, want, got),
		Rep:     rep,
		Details: map[string]string{"filter": filter, "want": want, "got": got},
	}
}

// CompilationError wraps any failure while compiling one rep.
type CompilationError struct {
	Rep        ir.Reference
	Identifier ir.Identifier
	RepName    string
	Err        error
}

// Error implements the error interface.
func (e *CompilationError) Error() string {
	return fmt.Sprintf("compile %s (rep %s): %v", e.Identifier, e.RepName, e.Err)
}

// Unwrap returns the underlying cause.
func (e *CompilationError) Unwrap() error { return e.Err }

// IsCompilationError reports whether err wraps a CompilationError.
func IsCompilationError(err error) bool {
	var ce *CompilationError
	return errors.As(err, &ce)
}

// DependencyCycleError reports reps that wait on each other's compiled
// content. Reps lists the cycle in wait order, starting and ending with
// the same rep.
type DependencyCycleError struct {
	Reps []ir.Reference
}

// Error implements the error interface.
func (e *DependencyCycleError) Error() string {
	parts := make([]string, len(e.Reps))
	for i, r := range e.Reps {
		parts[i] = string(r)
	}
	return "dependency cycle: " + strings.Join(parts, " -> ")
}

// IsCycleError reports whether err wraps a DependencyCycleError.
func IsCycleError(err error) bool {
	var ce *DependencyCycleError
	return errors.As(err, &ce)
}

// DependencyFailedError is returned to a rep waiting on content of a rep
// whose compilation failed.
type DependencyFailedError struct {
	Upstream ir.Reference
	Err      error
}

// Error implements the error interface.
func (e *DependencyFailedError) Error() string {
	return fmt.Sprintf("dependency %s failed: %v", e.Upstream, e.Err)
}

// Unwrap returns the upstream failure.
func (e *DependencyFailedError) Unwrap() error { return e.Err }

// errAborted is returned from suspension points of tasks torn down by the
// scheduler.
var errAborted = errors.New("compilation aborted")
