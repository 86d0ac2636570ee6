package agent

import "github.com/sigmasight/agentcore/pkg/models"

// Sink is the orchestrator's view of the stream writer (C7): it emits
// lifecycle/content events for one turn and exposes the cancellation signal
// the writer owns (client disconnect).
type Sink interface {
	// Emit writes one stream event. Droppable events (deltas) may be
	// silently dropped by the sink under backpressure; every other event
	// type must be delivered or the call must return an error.
	Emit(event models.StreamEvent) error

	// Done is closed when the underlying connection is gone — the
	// orchestrator selects on it to cancel the in-flight provider stream
	// and any outstanding tool calls.
	Done() <-chan struct{}
}
