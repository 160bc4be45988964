package errors

import (
	stderrors "errors"
	"fmt"
)

/*
Kind is the closed set of engine error categories. Every error that crosses
the engine boundary carries exactly one Kind so callers can branch on it
programmatically instead of parsing messages.
*/
type Kind string

const (
	KindValidation        Kind = "validation_error"
	KindBranchNotFound    Kind = "branch_not_found"
	KindThoughtNotFound   Kind = "thought_not_found"
	KindSemanticAnalysis  Kind = "semantic_analysis_error"
	KindConfiguration     Kind = "configuration_error"
	KindCircularReference Kind = "circular_reference"
	KindContradiction     Kind = "contradiction"
	KindEvaluation        Kind = "evaluation_error"
	KindUnknown           Kind = "unknown"
)

// Error is the single error type returned by engine operations. Details holds
// kind-specific payload fields, e.g. the offending path for a circular
// reference or the conflicting thought ids for a contradiction.
type Error struct {
	Kind    Kind           `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// With attaches a detail field and returns the same error for chaining.
func (e *Error) With(key string, value any) *Error {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

/*
Normalize converts any error into an *Error. Engine errors pass through
unchanged; anything of an unrecognized kind is wrapped with KindUnknown
rather than propagated raw.
*/
func Normalize(err error) *Error {
	if err == nil {
		return nil
	}

	var engineErr *Error
	if stderrors.As(err, &engineErr) {
		return engineErr
	}

	return &Error{Kind: KindUnknown, Message: err.Error()}
}

// IsKind reports whether err is an engine error of the given kind.
func IsKind(err error, kind Kind) bool {
	var engineErr *Error
	if stderrors.As(err, &engineErr) {
		return engineErr.Kind == kind
	}
	return false
}
