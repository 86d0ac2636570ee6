package agent

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sigmasight/agentcore/internal/agenterr"
	"github.com/sigmasight/agentcore/internal/observability"
	"github.com/sigmasight/agentcore/internal/registry"
	"github.com/sigmasight/agentcore/internal/reqcontext"
	"github.com/sigmasight/agentcore/pkg/models"
	"go.opentelemetry.io/otel/trace"
)

// dispatchResult is one tool call's outcome, order-preserving against the
// input slice.
type dispatchResult struct {
	Call   models.ToolCall
	Output json.RawMessage
	Err    error
}

// dispatchTools executes calls in parallel, bounded by maxConcurrency
// in-flight calls at once, and returns results in input order. A per-call
// failure (schema violation, unknown tool, upstream error) never aborts the
// others — it is recorded on that call's result and fed back to the model
// as an error result, per the "tool failure never fatal" semantics.
func dispatchTools(ctx context.Context, tracer *observability.Tracer, reg *registry.Registry, calls []models.ToolCall, maxConcurrency int) []dispatchResult {
	if len(calls) == 0 {
		return nil
	}
	if maxConcurrency <= 0 {
		maxConcurrency = len(calls)
	}

	results := make([]dispatchResult, len(calls))
	sem := make(chan struct{}, maxConcurrency)
	var wg sync.WaitGroup

	requestID := reqcontext.RequestID(ctx)

	for i, call := range calls {
		wg.Add(1)
		go func(idx int, tc models.ToolCall) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				cancelErr := agenterr.NewToolError(tc.Name, agenterr.ClassCancelled, ctx.Err())
				cancelErr.RequestID = requestID
				results[idx] = dispatchResult{Call: tc, Err: cancelErr}
				return
			}

			callCtx := ctx
			var span trace.Span
			if tracer != nil {
				callCtx, span = tracer.TraceToolExecution(callCtx, tc.Name)
			}

			out, err := reg.Execute(callCtx, tc.Name, tc.Input)
			if span != nil {
				observability.RecordError(span, err)
				span.End()
			}
			if toolErr, ok := err.(*agenterr.ToolError); ok {
				toolErr.RequestID = requestID
			}
			results[idx] = dispatchResult{Call: tc, Output: out, Err: err}
		}(i, call)
	}

	wg.Wait()
	return results
}

// toolResultMessage converts dispatch results into the tool-role completion
// message fed back to the provider for the next round. Failed calls are
// represented as an error envelope in Content with IsError=true rather than
// aborting the turn.
func toolResultMessage(results []dispatchResult) CompletionMessage {
	out := make([]models.ToolResult, len(results))
	for i, r := range results {
		if r.Err != nil {
			out[i] = models.ToolResult{
				ToolCallID: r.Call.ID,
				Content:    errorEnvelopeJSON(r.Err),
				IsError:    true,
			}
			continue
		}
		out[i] = models.ToolResult{
			ToolCallID: r.Call.ID,
			Content:    string(r.Output),
		}
	}
	return CompletionMessage{Role: string(models.RoleTool), ToolResults: out}
}

// errorEnvelopeJSON renders err as the standardized error envelope JSON
// (§3), so the model always sees the same error shape whether a tool
// schema-rejected or upstream-failed. A panic inside a tool is not recovered
// by dispatch.
func errorEnvelopeJSON(err error) string {
	detail := models.ErrorDetail{Message: err.Error()}

	var toolErr *agenterr.ToolError
	if te, ok := err.(*agenterr.ToolError); ok {
		toolErr = te
	}
	if toolErr != nil {
		detail.Retryable = toolErr.Retryable()
		detail.RequestID = toolErr.RequestID
		if toolErr.SuggestedParams != nil {
			if b, merr := json.Marshal(toolErr.SuggestedParams); merr == nil {
				detail.SuggestedParams = b
			}
		}
	}

	env := models.ErrorEnvelope{Error: detail}
	b, merr := json.Marshal(env)
	if merr != nil {
		return `{"error":{"message":"internal: failed to encode tool error"}}`
	}
	return string(b)
}
