// Package reqcontext carries per-turn request-scoped values across the
// orchestrator/tool-layer boundary: the caller's bearer token (forwarded to
// the data backend) and the active conversation id (used to resolve the
// per-conversation tool-result cache). Separate from internal/auth because
// these values are set by the orchestrator on every tool dispatch, not only
// by the authentication gate.
package reqcontext

import "context"

type contextKey int

const (
	bearerTokenKey contextKey = iota
	conversationIDKey
	requestIDKey
)

// WithBearerToken returns a context carrying the caller's bearer token, to be
// forwarded to the data backend by tool handlers.
func WithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerTokenKey, token)
}

// BearerToken returns the bearer token stashed on ctx, if any.
func BearerToken(ctx context.Context) string {
	v, _ := ctx.Value(bearerTokenKey).(string)
	return v
}

// WithConversationID returns a context carrying the active conversation id.
func WithConversationID(ctx context.Context, conversationID string) context.Context {
	return context.WithValue(ctx, conversationIDKey, conversationID)
}

// ConversationID returns the conversation id stashed on ctx, if any.
func ConversationID(ctx context.Context) string {
	v, _ := ctx.Value(conversationIDKey).(string)
	return v
}

// WithRequestID returns a context carrying the correlation id for this turn,
// surfaced in error envelopes and log lines.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID returns the correlation id stashed on ctx, if any.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}
