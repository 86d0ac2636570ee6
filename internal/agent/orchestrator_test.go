package agent

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sigmasight/agentcore/internal/prompts"
	"github.com/sigmasight/agentcore/internal/registry"
	"github.com/sigmasight/agentcore/internal/store"
	"github.com/sigmasight/agentcore/pkg/models"
)

// fakeProvider replays a scripted sequence of chunk batches, one batch per
// round, so tests can drive the orchestrator's round loop deterministically.
type fakeProvider struct {
	mu      sync.Mutex
	batches [][]*CompletionChunk
	calls   int
}

func (p *fakeProvider) Name() string         { return "fake" }
func (p *fakeProvider) Models() []Model      { return []Model{{ID: "fake-model"}} }
func (p *fakeProvider) SupportsTools() bool  { return true }

func (p *fakeProvider) Complete(ctx context.Context, req *CompletionRequest) (<-chan *CompletionChunk, error) {
	p.mu.Lock()
	idx := p.calls
	p.calls++
	p.mu.Unlock()

	var batch []*CompletionChunk
	if idx < len(p.batches) {
		batch = p.batches[idx]
	} else {
		batch = []*CompletionChunk{{Done: true}}
	}

	ch := make(chan *CompletionChunk, len(batch))
	for _, c := range batch {
		ch <- c
	}
	close(ch)
	return ch, nil
}

// textBatch returns chunks for a plain text answer with no tool calls.
func textBatch(text string) []*CompletionChunk {
	return []*CompletionChunk{{Text: text}, {Done: true}}
}

// toolCallBatch returns chunks requesting a single tool call.
func toolCallBatch(name string, input string) []*CompletionChunk {
	return []*CompletionChunk{
		{ToolCall: &models.ToolCall{ID: "call-1", Name: name, Input: json.RawMessage(input)}},
		{Done: true},
	}
}

// echoTool always succeeds, returning its input back as the envelope data.
type echoTool struct{ name string }

func (t *echoTool) Name() string        { return t.name }
func (t *echoTool) Description() string { return "echoes its input" }
func (t *echoTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object"}`)
}
func (t *echoTool) Execute(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	env := models.Envelope{Meta: models.Meta{}, Data: params}
	b, _ := json.Marshal(env)
	return b, nil
}

// recordingSink captures every emitted event in order, for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []models.StreamEvent
	done   chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{done: make(chan struct{})}
}

func (s *recordingSink) Emit(e models.StreamEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) Done() <-chan struct{} { return s.done }

func (s *recordingSink) types() []models.StreamEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.StreamEventType, len(s.events))
	for i, e := range s.events {
		out[i] = e.Type
	}
	return out
}

func fixedClock() time.Time { return time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC) }

func newTestOrchestrator(t *testing.T, provider LLMProvider) (*Orchestrator, store.Store, string) {
	t.Helper()
	st := store.NewMemStore(10 * time.Minute)
	conv, err := st.Create(t.Context(), "user-1")
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}

	reg := registry.New()

	return &Orchestrator{
		Store:            st,
		Registry:         reg,
		Prompts:          prompts.New(),
		Providers:        map[string]LLMProvider{"fake": provider},
		Default:          "fake",
		ToolLoopRoundCap: 3,
		Clock:            fixedClock,
	}, st, conv.ID
}

func TestRunTurnPlainTextAnswerReachesDone(t *testing.T) {
	provider := &fakeProvider{batches: [][]*CompletionChunk{textBatch("hello there")}}
	orch, _, convID := newTestOrchestrator(t, provider)

	sink := newRecordingSink()
	if err := orch.RunTurn(t.Context(), sink, "user-1", convID, "token", "what is my exposure?"); err != nil {
		t.Fatalf("RunTurn: %v", err)
	}

	types := sink.types()
	if types[0] != models.EventStart {
		t.Fatalf("expected first event start, got %v", types[0])
	}
	if types[len(types)-1] != models.EventDone {
		t.Fatalf("expected last event done, got %v", types[len(types)-1])
	}
}

func TestRunTurnDispatchesToolAndEmitsResult(t *testing.T) {
	reg := registry.New()
	reg.MustRegister(&echoTool{name: "lookup"})

	provider := &fakeProvider{batches: [][]*CompletionChunk{
		toolCallBatch("lookup", `{"symbol":"AAPL"}`),
		textBatch("AAPL is up today"),
	}}

	st := store.NewMemStore(10 * time.Minute)
	conv, err := st.Create(t.Context(), "user-1")
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}

	orch := &Orchestrator{
		Store:            st,
		Registry:         reg,
		Prompts:          prompts.New(),
		Providers:        map[string]LLMProvider{"fake": provider},
		Default:          "fake",
		ToolLoopRoundCap: 3,
		Clock:            fixedClock,
	}

	sink := newRecordingSink()
	if err := orch.RunTurn(t.Context(), sink, "user-1", conv.ID, "token", "how's AAPL?"); err != nil {
		t.Fatalf("RunTurn: %v", err)
	}

	types := sink.types()
	foundToolCall, foundToolResult := false, false
	for _, ty := range types {
		if ty == models.EventToolCall {
			foundToolCall = true
		}
		if ty == models.EventToolResult {
			foundToolResult = true
		}
	}
	if !foundToolCall || !foundToolResult {
		t.Fatalf("expected tool_call and tool_result events, got %v", types)
	}
	if types[len(types)-1] != models.EventDone {
		t.Fatalf("expected turn to finish in done, got %v", types[len(types)-1])
	}
}

func TestRunTurnExceedsToolLoopBudget(t *testing.T) {
	reg := registry.New()
	reg.MustRegister(&echoTool{name: "lookup"})

	// Every round requests another tool call, so the round cap is always hit.
	batches := make([][]*CompletionChunk, 0, 5)
	for i := 0; i < 5; i++ {
		batches = append(batches, toolCallBatch("lookup", `{}`))
	}
	provider := &fakeProvider{batches: batches}

	st := store.NewMemStore(10 * time.Minute)
	conv, err := st.Create(t.Context(), "user-1")
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}

	orch := &Orchestrator{
		Store:            st,
		Registry:         reg,
		Prompts:          prompts.New(),
		Providers:        map[string]LLMProvider{"fake": provider},
		Default:          "fake",
		ToolLoopRoundCap: 2,
		Clock:            fixedClock,
	}

	sink := newRecordingSink()
	if err := orch.RunTurn(t.Context(), sink, "user-1", conv.ID, "token", "keep looking things up"); err != nil {
		t.Fatalf("RunTurn: %v", err)
	}

	var sawBudgetError bool
	sink.mu.Lock()
	for _, e := range sink.events {
		if e.Type == models.EventError {
			if data, ok := e.Data.(models.ErrorData); ok && data.Reason == "tool_loop_budget_exceeded" {
				sawBudgetError = true
			}
		}
	}
	sink.mu.Unlock()
	if !sawBudgetError {
		t.Fatalf("expected a tool_loop_budget_exceeded error event")
	}
}

func TestRunTurnModeChangeMidTurn(t *testing.T) {
	provider := &fakeProvider{batches: [][]*CompletionChunk{textBatch("switched")}}
	orch, st, convID := newTestOrchestrator(t, provider)

	sink := newRecordingSink()
	if err := orch.RunTurn(t.Context(), sink, "user-1", convID, "token", "/mode blue\nwhat now?"); err != nil {
		t.Fatalf("RunTurn: %v", err)
	}

	var sawModeChanged bool
	sink.mu.Lock()
	for _, e := range sink.events {
		if e.Type == models.EventModeChanged {
			if data, ok := e.Data.(models.ModeChangedData); ok && data.Mode == "blue" {
				sawModeChanged = true
			}
		}
	}
	sink.mu.Unlock()
	if !sawModeChanged {
		t.Fatalf("expected a mode_changed event for blue")
	}

	types := sink.types()
	if len(types) < 2 || types[0] != models.EventStart || types[1] != models.EventModeChanged {
		t.Fatalf("expected start before mode_changed, got %v", types)
	}

	conv, err := st.Get(t.Context(), "user-1", convID)
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	if conv.Mode != models.ModeBlue {
		t.Fatalf("expected persisted mode blue, got %v", conv.Mode)
	}
}

func TestRunTurnUnrecognizedModeLeavesModeUnchanged(t *testing.T) {
	provider := &fakeProvider{batches: [][]*CompletionChunk{textBatch("ok")}}
	orch, st, convID := newTestOrchestrator(t, provider)

	sink := newRecordingSink()
	if err := orch.RunTurn(t.Context(), sink, "user-1", convID, "token", "/mode rainbow\nwhat now?"); err != nil {
		t.Fatalf("RunTurn: %v", err)
	}

	sink.mu.Lock()
	for _, e := range sink.events {
		if e.Type == models.EventModeChanged {
			t.Fatalf("did not expect mode_changed for an unrecognized color")
		}
	}
	sink.mu.Unlock()

	conv, err := st.Get(t.Context(), "user-1", convID)
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	if conv.Mode != models.DefaultMode {
		t.Fatalf("expected mode to remain default, got %v", conv.Mode)
	}
}

func TestParseModeCommand(t *testing.T) {
	mode, text, changed := parseModeCommand("/mode indigo\nanalyze my portfolio", models.ModeGreen)
	if !changed || mode != models.ModeIndigo || text != "analyze my portfolio" {
		t.Fatalf("unexpected parse result: mode=%v text=%q changed=%v", mode, text, changed)
	}

	mode, text, changed = parseModeCommand("just a normal message", models.ModeGreen)
	if changed || mode != models.ModeGreen || text != "just a normal message" {
		t.Fatalf("expected no mode change, got mode=%v text=%q changed=%v", mode, text, changed)
	}
}
