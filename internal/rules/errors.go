package rules

import (
	"errors"
	"fmt"
)

// RuleError is a configuration mistake found while applying rules.
// Rule errors are fatal to the run.
type RuleError struct {
	// Code identifies the error category.
	Code RuleErrorCode

	// Message is a human-readable description.
	Message string

	// Identifier is the item or layout the rule was applied to.
	Identifier string

	// Rep is the rep name, empty for layouts.
	Rep string
}

// RuleErrorCode categorizes rule errors.
type RuleErrorCode string

const (
	// ErrCodeNoMatchingCompilationRule: no compile rule matches the rep.
	ErrCodeNoMatchingCompilationRule RuleErrorCode = "NO_MATCHING_COMPILATION_RULE"

	// ErrCodePathWithoutInitialSlash: a snapshot path does not start with "/".
	ErrCodePathWithoutInitialSlash RuleErrorCode = "PATH_WITHOUT_INITIAL_SLASH"

	// ErrCodeSnapshotAlreadyExists: a snapshot name was recorded twice.
	ErrCodeSnapshotAlreadyExists RuleErrorCode = "SNAPSHOT_ALREADY_EXISTS"

	// ErrCodeUndefinedFilterForLayout: no layout rule matches the layout.
	ErrCodeUndefinedFilterForLayout RuleErrorCode = "UNDEFINED_FILTER_FOR_LAYOUT"

	// ErrCodeNoActionSequenceForLayout: a layout's action sequence is not a
	// single filter action.
	ErrCodeNoActionSequenceForLayout RuleErrorCode = "NO_ACTION_SEQUENCE_FOR_LAYOUT"
)

// Error implements the error interface.
func (e *RuleError) Error() string {
	switch {
	case e.Identifier != "" && e.Rep != "":
		return fmt.Sprintf("%s: %s (item=%s, rep=%s)", e.Code, e.Message, e.Identifier, e.Rep)
	case e.Identifier != "":
		return fmt.Sprintf("%s: %s (identifier=%s)", e.Code, e.Message, e.Identifier)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// IsRuleError reports whether err wraps a RuleError with the given code.
// An empty code matches any rule error.
func IsRuleError(err error, code RuleErrorCode) bool {
	var re *RuleError
	if errors.As(err, &re) {
		return code == "" || re.Code == code
	}
	return false
}

// NewNoMatchingCompilationRuleError reports a rep no compile rule matches.
func NewNoMatchingCompilationRuleError(identifier, rep string) *RuleError {
	return &RuleError{
		Code:       ErrCodeNoMatchingCompilationRule,
		Message:    "no compilation rule matches",
		Identifier: identifier,
		Rep:        rep,
	}
}

// NewPathWithoutInitialSlashError reports a snapshot path that is not absolute.
func NewPathWithoutInitialSlashError(identifier, rep, path string) *RuleError {
	return &RuleError{
		Code:       ErrCodePathWithoutInitialSlash,
		Message:    fmt.Sprintf("path %q does not start with a slash", path),
		Identifier: identifier,
		Rep:        rep,
	}
}

// NewSnapshotAlreadyExistsError reports a duplicate snapshot name.
func NewSnapshotAlreadyExistsError(identifier, rep, snapshot string) *RuleError {
	return &RuleError{
		Code:       ErrCodeSnapshotAlreadyExists,
		Message:    fmt.Sprintf("snapshot %q already exists", snapshot),
		Identifier: identifier,
		Rep:        rep,
	}
}

// NewUndefinedFilterForLayoutError reports a layout no layout rule matches.
func NewUndefinedFilterForLayoutError(identifier string) *RuleError {
	return &RuleError{
		Code:       ErrCodeUndefinedFilterForLayout,
		Message:    "no layout rule matches, so the layout has no filter",
		Identifier: identifier,
	}
}

// NewNoActionSequenceForLayoutError reports a layout sequence that is not
// exactly one filter action.
func NewNoActionSequenceForLayoutError(identifier string) *RuleError {
	return &RuleError{
		Code:       ErrCodeNoActionSequenceForLayout,
		Message:    "layout action sequence must consist of exactly one filter",
		Identifier: identifier,
	}
}
