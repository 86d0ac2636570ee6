// Package stream implements C7, the SSE stream writer: it adapts an
// http.ResponseWriter into an agent.Sink, serializing stream events onto the
// wire in "event: <type>\ndata: <json>\n\n" records and applying two-lane
// backpressure so a slow client drops text deltas before it ever blocks a
// lifecycle or terminal event.
package stream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/sigmasight/agentcore/pkg/models"
)

// Config sizes the writer's backpressure lanes.
type Config struct {
	// HighPriBuffer sizes the lane for non-droppable events (start,
	// mode_changed, tool_call, tool_result, error, done). Default 32.
	HighPriBuffer int

	// LowPriBuffer sizes the lane for droppable delta events, dropped
	// under backpressure rather than blocking the model round. Default 256.
	LowPriBuffer int

	// HeartbeatInterval is not read by the Writer: the heartbeat cadence is
	// the heartbeat argument of Run.
	HeartbeatInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.HighPriBuffer <= 0 {
		c.HighPriBuffer = 32
	}
	if c.LowPriBuffer <= 0 {
		c.LowPriBuffer = 256
	}
	return c
}

// Writer adapts an http.ResponseWriter into an agent.Sink. One Writer is
// created per turn and discarded once Run returns.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher

	highPri chan models.StreamEvent
	lowPri  chan models.StreamEvent

	done    chan struct{}
	closed  uint32
	dropped uint64
}

// NewWriter writes the SSE response headers to w and returns a Writer ready
// to accept events. done is closed when the underlying request is
// cancelled (client disconnect); the orchestrator selects on Writer.Done()
// to notice this.
func NewWriter(w http.ResponseWriter, cfg Config) *Writer {
	cfg = cfg.withDefaults()

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	writer := &Writer{
		w:       w,
		flusher: flusher,
		highPri: make(chan models.StreamEvent, cfg.HighPriBuffer),
		lowPri:  make(chan models.StreamEvent, cfg.LowPriBuffer),
		done:    make(chan struct{}),
	}
	return writer
}

// Emit sends one event through the appropriate lane. Droppable events are
// dropped under backpressure; every other event type blocks until there is
// room or the writer is closed.
func (w *Writer) Emit(event models.StreamEvent) error {
	if atomic.LoadUint32(&w.closed) == 1 {
		return fmt.Errorf("stream: writer closed")
	}

	if event.Type.Droppable() {
		select {
		case w.lowPri <- event:
		default:
			atomic.AddUint64(&w.dropped, 1)
		}
		return nil
	}

	select {
	case w.highPri <- event:
		return nil
	case <-w.done:
		return fmt.Errorf("stream: client disconnected")
	}
}

// Done is closed when Run returns: on client disconnect, or once the turn
// has finished and its queued events have been written.
func (w *Writer) Done() <-chan struct{} {
	return w.done
}

// DroppedCount reports how many droppable events were discarded under
// backpressure over the life of this writer.
func (w *Writer) DroppedCount() uint64 {
	return atomic.LoadUint64(&w.dropped)
}

// Run drains both lanes onto the wire, prioritizing highPri, writing a
// heartbeat comment every heartbeat interval (zero disables it), and returns
// once reqDone is closed (client disconnect), once a done event has been
// written, or once the orchestrator signals completion by closing stopped.
// Deltas still queued when done arrives are written ahead of it; an error
// event does not end the stream, so the done that follows it is written.
// Run must be invoked in the request-handling goroutine, as
// writes to an http.ResponseWriter are not safe for concurrent use with the
// handler returning.
func (w *Writer) Run(reqDone <-chan struct{}, stopped <-chan struct{}, heartbeat time.Duration) {
	defer w.close()

	var ticker *time.Ticker
	var tick <-chan time.Time
	if heartbeat > 0 {
		ticker = time.NewTicker(heartbeat)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		// Always check the high-priority lane first, non-blocking, so a
		// lifecycle/terminal event already queued is never reordered behind
		// a delta that happens to win the later select at random.
		select {
		case <-reqDone:
			return
		case <-stopped:
			w.drainRemaining()
			return
		case e := <-w.highPri:
			if e.Type == models.EventDone {
				w.drainRemaining()
				w.write(e)
				return
			}
			w.write(e)
			continue
		default:
		}

		select {
		case <-reqDone:
			return
		case <-stopped:
			w.drainRemaining()
			return
		case e := <-w.highPri:
			if e.Type == models.EventDone {
				w.drainRemaining()
				w.write(e)
				return
			}
			w.write(e)
		case e := <-w.lowPri:
			w.write(e)
		case <-tick:
			w.writeComment("")
		}
	}
}

// drainRemaining flushes any events already queued, without blocking
// further: queued deltas first, then the high-priority lane (e.g. a
// tool_result emitted just before done).
func (w *Writer) drainRemaining() {
	for {
		select {
		case e := <-w.lowPri:
			w.write(e)
			continue
		default:
		}
		select {
		case e := <-w.highPri:
			w.write(e)
		default:
			return
		}
	}
}

func (w *Writer) write(e models.StreamEvent) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		data, _ = json.Marshal(models.ErrorData{Message: "failed to encode event", Reason: "encode_error"})
		fmt.Fprintf(w.w, "event: %s\ndata: %s\n\n", models.EventError, data)
	} else {
		fmt.Fprintf(w.w, "event: %s\ndata: %s\n\n", e.Type, data)
	}
	if w.flusher != nil {
		w.flusher.Flush()
	}
}

func (w *Writer) writeComment(text string) {
	fmt.Fprintf(w.w, ": %s\n\n", text)
	if w.flusher != nil {
		w.flusher.Flush()
	}
}

func (w *Writer) close() {
	if atomic.CompareAndSwapUint32(&w.closed, 0, 1) {
		close(w.done)
	}
}
