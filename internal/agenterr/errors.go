// Package agenterr defines the error taxonomy shared by the tool layer and
// the orchestrator: a classified ToolError for failures that must be fed
// back to the model as an error envelope, and sentinel errors for
// orchestrator-level conditions that terminate a turn.
package agenterr

import (
	"errors"
	"fmt"
)

// Sentinel errors for orchestrator-level conditions.
var (
	// ErrToolLoopBudgetExceeded is returned when a turn exceeds the tool
	// dispatch round cap.
	ErrToolLoopBudgetExceeded = errors.New("tool loop budget exceeded")

	// ErrProviderStream indicates the model provider's stream broke and the
	// single permitted retry also failed.
	ErrProviderStream = errors.New("provider stream failed")

	// ErrCancelled indicates the client disconnected mid-turn.
	ErrCancelled = errors.New("turn cancelled")

	// ErrUnknownTool indicates a tool name not present in the registry.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrRateLimited indicates the per-user rate limit rejected a request
	// before a stream was opened.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnauthorized indicates missing, expired, or forged credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTurnTextTooLong indicates a turn's input text exceeded the
	// configured maximum length.
	ErrTurnTextTooLong = errors.New("turn text exceeds the configured maximum length")
)

// Class categorizes a tool-facing error for retry logic and client-visible
// reason codes, matching the taxonomy in §7 of the specification.
type Class string

const (
	ClassInput              Class = "input"
	ClassAuth                Class = "auth"
	ClassRateLimited         Class = "rate_limited"
	ClassUpstreamTransient   Class = "upstream_transient"
	ClassUpstreamPermanent   Class = "upstream_permanent"
	ClassProviderStream      Class = "provider_stream"
	ClassBudget              Class = "budget"
	ClassCancelled           Class = "cancelled"
)

// Retryable reports whether a failure of this class should be retried.
func (c Class) Retryable() bool {
	switch c {
	case ClassRateLimited, ClassUpstreamTransient:
		return true
	default:
		return false
	}
}

// ToolError is a structured, classified failure from tool execution. It is
// never raised past the orchestrator: callers convert it into an error
// envelope and feed it back to the model.
type ToolError struct {
	Class           Class
	ToolName        string
	Message         string
	Cause           error
	SuggestedParams any
	RequestID       string
}

func (e *ToolError) Error() string {
	if e.ToolName != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Class, e.ToolName, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Class, e.Message)
}

func (e *ToolError) Unwrap() error { return e.Cause }

// Retryable reports whether the caller should retry the underlying
// operation.
func (e *ToolError) Retryable() bool { return e.Class.Retryable() }

// NewToolError builds a ToolError of the given class; its Message is taken
// from cause when cause is non-nil.
func NewToolError(toolName string, class Class, cause error) *ToolError {
	e := &ToolError{ToolName: toolName, Class: class, Cause: cause}
	if cause != nil {
		e.Message = cause.Error()
	}
	return e
}
