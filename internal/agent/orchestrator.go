package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sigmasight/agentcore/internal/agenterr"
	"github.com/sigmasight/agentcore/internal/observability"
	"github.com/sigmasight/agentcore/internal/prompts"
	"github.com/sigmasight/agentcore/internal/registry"
	"github.com/sigmasight/agentcore/internal/reqcontext"
	"github.com/sigmasight/agentcore/internal/store"
	"github.com/sigmasight/agentcore/pkg/models"
	"go.opentelemetry.io/otel/trace"
)

// Orchestrator drives C6's per-turn state machine: mode-change parsing,
// system prompt composition, the streaming model round loop, tool dispatch,
// and conversation bookkeeping.
type Orchestrator struct {
	Store    store.Store
	Registry *registry.Registry
	Prompts  *prompts.Library

	// Providers maps provider name ("anthropic", "openai", "bedrock") to an
	// implementation. Default and Fallback name entries in this map.
	Providers map[string]LLMProvider
	Default   string
	Fallback  string
	Model     string

	ToolLoopRoundCap int
	ToolConcurrency  int
	MaxTokens        int

	// MaxTurnTextLength caps the length of a turn's input text (§6). Zero
	// disables the check.
	MaxTurnTextLength int

	Logger *slog.Logger
	Clock  func() time.Time

	// Tracer, if set, wraps each provider round and tool dispatch in a span.
	// Nil is valid and simply skips tracing.
	Tracer *observability.Tracer
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o *Orchestrator) clock() time.Time {
	if o.Clock != nil {
		return o.Clock()
	}
	return time.Now()
}

func (o *Orchestrator) roundCap() int {
	if o.ToolLoopRoundCap > 0 {
		return o.ToolLoopRoundCap
	}
	return 8
}

// RunTurn executes one complete turn for conversationID on behalf of userID,
// emitting every event in the §3 protocol through sink, and returns only
// once the turn has reached a terminal state (Done, Error, or Cancelled).
// The returned error is non-nil only for conditions the caller must log;
// all model/tool-visible failures are instead emitted as error events.
func (o *Orchestrator) RunTurn(ctx context.Context, sink Sink, userID, conversationID, bearerToken, text string) error {
	ctx = reqcontext.WithBearerToken(ctx, bearerToken)
	ctx = reqcontext.WithConversationID(ctx, conversationID)

	cancelCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-sink.Done():
			cancel()
		case <-cancelCtx.Done():
		}
	}()

	log := o.logger().With("conversation_id", conversationID, "user_id", userID)

	conv, err := o.Store.Get(cancelCtx, userID, conversationID)
	if err != nil {
		return o.emitFatal(sink, "conversation_not_found", err)
	}

	if o.MaxTurnTextLength > 0 && len(text) > o.MaxTurnTextLength {
		return o.emitFatal(sink, "input_text_too_long", agenterr.ErrTurnTextTooLong)
	}

	if err := sink.Emit(models.StreamEvent{Type: models.EventStart, Data: struct{}{}}); err != nil {
		return err
	}

	mode, turnText, modeChanged := parseModeCommand(text, conv.Mode)
	if modeChanged {
		if err := o.Store.UpdateMode(cancelCtx, userID, conversationID, mode); err != nil {
			return o.emitFatal(sink, "store_error", err)
		}
		conv.Mode = mode
		if emitErr := sink.Emit(models.StreamEvent{Type: models.EventModeChanged, Data: models.ModeChangedData{Mode: string(mode)}}); emitErr != nil {
			return emitErr
		}
		if strings.TrimSpace(turnText) == "" {
			return o.finalize(cancelCtx, sink, userID, conversationID, conv.ProviderConvRef)
		}
	}

	system, _, _, err := o.Prompts.Resolve(conv.Mode, prompts.Context{AsOf: o.clock().UTC().Format("2006-01-02T15:04:05Z")})
	if err != nil {
		return o.emitFatal(sink, "prompt_resolution_failed", err)
	}

	messages := []CompletionMessage{{Role: string(models.RoleUser), Content: turnText}}
	tools := o.llmTools()

	providerConvRef := conv.ProviderConvRef

	for round := 0; ; round++ {
		if round >= o.roundCap() {
			o.emitErrorEvent(sink, "tool_loop_budget_exceeded", agenterr.ErrToolLoopBudgetExceeded.Error())
			return o.finalize(cancelCtx, sink, userID, conversationID, providerConvRef)
		}

		select {
		case <-cancelCtx.Done():
			return o.cancelled(cancelCtx, userID, conversationID)
		default:
		}

		req := &CompletionRequest{
			Model:           o.Model,
			System:          system,
			Messages:        messages,
			Tools:           tools,
			MaxTokens:       o.MaxTokens,
			ProviderConvRef: providerConvRef,
		}

		toolCalls, text, nextRef, err := o.streamRound(cancelCtx, sink, req)
		if err != nil {
			if cancelCtx.Err() != nil {
				return o.cancelled(cancelCtx, userID, conversationID)
			}
			if isRetryableProviderErr(err) {
				log.Warn("provider stream failed, retrying once", "error", err)
				toolCalls, text, nextRef, err = o.streamRound(cancelCtx, sink, req)
			}
			if err != nil {
				o.emitErrorEvent(sink, "provider_stream_failed", err.Error())
				return o.finalize(cancelCtx, sink, userID, conversationID, providerConvRef)
			}
		}
		if nextRef != "" {
			providerConvRef = nextRef
		}

		if len(toolCalls) == 0 {
			break
		}

		assistantMsg := CompletionMessage{Role: string(models.RoleAssistant), Content: text, ToolCalls: toolCalls}
		messages = append(messages, assistantMsg)

		results := dispatchTools(cancelCtx, o.Tracer, o.Registry, toolCalls, o.ToolConcurrency)
		for _, r := range results {
			if emitErr := o.emitToolResult(sink, r); emitErr != nil {
				return emitErr
			}
		}

		if cancelCtx.Err() != nil {
			return o.cancelled(cancelCtx, userID, conversationID)
		}

		messages = append(messages, toolResultMessage(results))
	}

	return o.finalize(cancelCtx, sink, userID, conversationID, providerConvRef)
}

// streamRound performs one model round, emitting delta and tool_call events
// as they arrive, and returns the accumulated text, any tool calls the
// model requested, and the provider's conversation reference if updated.
func (o *Orchestrator) streamRound(ctx context.Context, sink Sink, req *CompletionRequest) (calls []models.ToolCall, text string, providerRef string, err error) {
	provider, err := o.provider()
	if err != nil {
		return nil, "", "", err
	}

	if o.Tracer != nil {
		var span trace.Span
		ctx, span = o.Tracer.TraceLLMRequest(ctx, provider.Name(), req.Model)
		defer func() { observability.RecordError(span, err); span.End() }()
	}

	chunks, err := provider.Complete(ctx, req)
	if err != nil {
		return nil, "", "", err
	}

	var textBuilder strings.Builder

	for chunk := range chunks {
		if chunk.Error != nil {
			err = chunk.Error
			return nil, "", "", err
		}
		if chunk.Text != "" {
			textBuilder.WriteString(chunk.Text)
			if emitErr := sink.Emit(models.StreamEvent{Type: models.EventDelta, Data: models.DeltaData{Delta: chunk.Text}}); emitErr != nil {
				err = emitErr
				return nil, "", "", err
			}
		}
		if chunk.ToolCall != nil {
			calls = append(calls, *chunk.ToolCall)
			if emitErr := sink.Emit(models.StreamEvent{Type: models.EventToolCall, Data: models.ToolCallData{Name: chunk.ToolCall.Name, Args: json.RawMessage(chunk.ToolCall.Input)}}); emitErr != nil {
				err = emitErr
				return nil, "", "", err
			}
		}
		if chunk.ProviderConvRef != "" {
			providerRef = chunk.ProviderConvRef
		}
	}

	return calls, textBuilder.String(), providerRef, nil
}

func (o *Orchestrator) emitToolResult(sink Sink, r dispatchResult) error {
	if r.Err != nil {
		return sink.Emit(models.StreamEvent{Type: models.EventToolResult, Data: models.ToolResultData{
			Name:    r.Call.Name,
			Meta:    models.Meta{},
			Preview: map[string]any{"error": r.Err.Error()},
		}})
	}

	var env models.Envelope
	if err := json.Unmarshal(r.Output, &env); err != nil {
		return sink.Emit(models.StreamEvent{Type: models.EventToolResult, Data: models.ToolResultData{Name: r.Call.Name}})
	}
	return sink.Emit(models.StreamEvent{Type: models.EventToolResult, Data: models.ToolResultData{
		Name:    r.Call.Name,
		Meta:    env.Meta,
		Preview: buildPreview(env.Data),
	}})
}

func (o *Orchestrator) finalize(ctx context.Context, sink Sink, userID, conversationID, providerConvRef string) error {
	if providerConvRef != "" {
		_ = o.Store.UpdateProviderRef(ctx, userID, conversationID, providerConvRef)
	}
	_ = o.Store.UpdateLastTouched(ctx, userID, conversationID, o.clock())
	return sink.Emit(models.StreamEvent{Type: models.EventDone, Data: struct{}{}})
}

func (o *Orchestrator) cancelled(ctx context.Context, userID, conversationID string) error {
	_ = o.Store.UpdateLastTouched(context.WithoutCancel(ctx), userID, conversationID, o.clock())
	return agenterr.ErrCancelled
}

func (o *Orchestrator) emitErrorEvent(sink Sink, reason, message string) {
	_ = sink.Emit(models.StreamEvent{Type: models.EventError, Data: models.ErrorData{Message: message, Reason: reason}})
}

func (o *Orchestrator) emitFatal(sink Sink, reason string, err error) error {
	o.emitErrorEvent(sink, reason, err.Error())
	_ = sink.Emit(models.StreamEvent{Type: models.EventDone, Data: struct{}{}})
	return err
}

func (o *Orchestrator) provider() (LLMProvider, error) {
	if p, ok := o.Providers[o.Default]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("agent: no provider registered for default %q", o.Default)
}

func (o *Orchestrator) llmTools() []Tool {
	descriptors := o.Registry.All()
	tools := make([]Tool, len(descriptors))
	for i, d := range descriptors {
		tools[i] = Tool{Name: d.Name(), Description: d.Description(), Schema: d.Schema()}
	}
	return tools
}

// isRetryableProviderErr reports whether a provider-stream failure should
// trigger the single permitted retry on the same conversation reference.
func isRetryableProviderErr(err error) bool {
	type retryabler interface{ Retryable() bool }
	if r, ok := err.(retryabler); ok {
		return r.Retryable()
	}
	return false
}

// parseModeCommand recognizes a leading "/mode <color>" command and returns
// the resulting mode, the remaining turn text (with the command stripped),
// and whether a change was requested. An unrecognized color leaves the mode
// unchanged and treats the whole line as ordinary turn text.
func parseModeCommand(text string, current models.Mode) (models.Mode, string, bool) {
	const prefix = "/mode "
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(strings.ToLower(trimmed), prefix) {
		return current, text, false
	}

	rest := strings.TrimSpace(trimmed[len(prefix):])
	parts := strings.SplitN(rest, "\n", 2)
	candidate := models.Mode(strings.ToLower(strings.TrimSpace(parts[0])))
	if !candidate.Valid() {
		return current, text, false
	}

	remaining := ""
	if len(parts) > 1 {
		remaining = strings.TrimSpace(parts[1])
	}
	return candidate, remaining, true
}
