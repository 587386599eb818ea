package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Caller-side validation failures, rejected before any provider call.
var (
	ErrEmptyQuery    = errors.New("query must not be empty")
	ErrEmptyQuestion = errors.New("question must not be empty")
)

// ProviderErrorKind distinguishes failure modes of an external provider call
// so callers can tell "provider down" from "request rejected".
type ProviderErrorKind string

const (
	ProviderTimeout  ProviderErrorKind = "timeout"
	ProviderRejected ProviderErrorKind = "rejected"
	ProviderUnknown  ProviderErrorKind = "unknown"
)

// ProviderError wraps a transport, auth or timeout failure from an external
// search or generation service.
type ProviderError struct {
	Op   string // fetch_evidence, synthesize, edit, answer
	Kind ProviderErrorKind
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: provider %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// wrapProviderErr classifies err into a ProviderError for the given operation.
func wrapProviderErr(op string, err error) *ProviderError {
	kind := ProviderUnknown
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = ProviderTimeout
	case strings.Contains(err.Error(), "status 401"), strings.Contains(err.Error(), "status 403"),
		strings.Contains(err.Error(), "status 429"):
		kind = ProviderRejected
	}
	return &ProviderError{Op: op, Kind: kind, Err: err}
}

// EmptyResultError signals the search provider returned zero results. It is
// surfaced, never silently treated as an empty plan.
type EmptyResultError struct {
	Query string
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("search returned no results for %q", e.Query)
}

// SchemaValidationError signals that generation output could not be coerced
// to the plan schema after the bounded repair attempt.
type SchemaValidationError struct {
	Violations []string
}

func (e *SchemaValidationError) Error() string {
	return "plan schema validation failed: " + strings.Join(e.Violations, "; ")
}

// InvalidSectionError signals an edit request naming an unknown section key.
// Rejected before any provider call is made.
type InvalidSectionError struct {
	Section string
}

func (e *InvalidSectionError) Error() string {
	return fmt.Sprintf("unknown plan section %q", e.Section)
}

// ContainmentViolationError signals that an edit response modified sections
// other than the target. The pre-edit plan is the safe fallback; the
// corrupted candidate is never returned.
type ContainmentViolationError struct {
	Target  string
	Changed []string
}

func (e *ContainmentViolationError) Error() string {
	return fmt.Sprintf("edit of %q also changed %s", e.Target, strings.Join(e.Changed, ", "))
}
