// Package agent implements C6, the agent orchestrator: the per-turn state
// machine that composes a system prompt, drives a streaming model call,
// dispatches tool calls through the registry, and emits stream events.
package agent

import (
	"context"
	"encoding/json"

	"github.com/sigmasight/agentcore/pkg/models"
)

// LLMProvider is the provider-agnostic boundary between the orchestrator and
// a concrete model backend (Anthropic, OpenAI, Bedrock). Implementations
// must be safe for concurrent use: the orchestrator may hold one instance
// per provider for the life of the process.
type LLMProvider interface {
	// Complete sends a request and returns a channel of streaming chunks.
	// The channel is closed when the stream ends, successfully or not; a
	// chunk with a non-nil Error is always the last value sent.
	Complete(ctx context.Context, req *CompletionRequest) (<-chan *CompletionChunk, error)

	// Name identifies the provider ("anthropic", "openai", "bedrock").
	Name() string

	// Models lists the models this provider exposes.
	Models() []Model

	// SupportsTools reports whether this provider can accept a tool list.
	SupportsTools() bool
}

// CompletionRequest carries everything needed for one streaming model call.
type CompletionRequest struct {
	Model     string               `json:"model"`
	System    string               `json:"system,omitempty"`
	Messages  []CompletionMessage  `json:"messages"`
	Tools     []Tool               `json:"tools,omitempty"`
	MaxTokens int                  `json:"max_tokens,omitempty"`

	// ProviderConvRef is the opaque provider-side conversation/thread
	// reference from a prior turn, when the provider supports resuming a
	// remembered context instead of replaying full history.
	ProviderConvRef string `json:"provider_conv_ref,omitempty"`
}

// CompletionMessage is one message in the conversation passed to the
// provider. Role is "user", "assistant", or "tool".
type CompletionMessage struct {
	Role        string              `json:"role"`
	Content     string              `json:"content,omitempty"`
	ToolCalls   []models.ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []models.ToolResult `json:"tool_results,omitempty"`
}

// CompletionChunk is one unit of a streaming model response.
type CompletionChunk struct {
	// Text is partial response text, streamed incrementally.
	Text string `json:"text,omitempty"`

	// ToolCall is a complete tool invocation request from the model.
	ToolCall *models.ToolCall `json:"tool_call,omitempty"`

	// Done is true on the final chunk of a successful stream.
	Done bool `json:"done,omitempty"`

	// Error terminates the stream; no further chunks follow.
	Error error `json:"-"`

	// ProviderConvRef is the provider's own reference for this
	// conversation, populated on the final chunk when the provider
	// supports a resumable server-side memory.
	ProviderConvRef string `json:"provider_conv_ref,omitempty"`
}

// Model describes one model a provider exposes.
type Model struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContextSize int    `json:"context_size"`
}

// Tool is the provider-facing shape of a registry descriptor: name,
// description, and JSON Schema, with no reference to the handler behind it.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"schema"`
}
