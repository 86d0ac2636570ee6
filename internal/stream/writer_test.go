package stream

import (
	"bufio"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sigmasight/agentcore/pkg/models"
)

func TestWriterSetsSSEHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewWriter(rec, Config{})
	defer w.close()

	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("expected text/event-stream, got %q", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-cache" {
		t.Fatalf("expected no-cache, got %q", got)
	}
	if got := rec.Header().Get("X-Accel-Buffering"); got != "no" {
		t.Fatalf("expected X-Accel-Buffering: no, got %q", got)
	}
}

func TestWriterRunEmitsRecordsUntilDone(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewWriter(rec, Config{})

	stopped := make(chan struct{})
	reqDone := make(chan struct{})

	runFinished := make(chan struct{})
	go func() {
		w.Run(reqDone, stopped, 0)
		close(runFinished)
	}()

	if err := w.Emit(models.StreamEvent{Type: models.EventStart, Data: struct{}{}}); err != nil {
		t.Fatalf("emit start: %v", err)
	}
	if err := w.Emit(models.StreamEvent{Type: models.EventDelta, Data: models.DeltaData{Delta: "hi"}}); err != nil {
		t.Fatalf("emit delta: %v", err)
	}
	if err := w.Emit(models.StreamEvent{Type: models.EventDone, Data: struct{}{}}); err != nil {
		t.Fatalf("emit done: %v", err)
	}

	select {
	case <-runFinished:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after a done event")
	}

	body := rec.Body.String()
	if !strings.Contains(body, "event: start") {
		t.Fatalf("expected a start record, body=%q", body)
	}
	if !strings.Contains(body, "event: delta") {
		t.Fatalf("expected a delta record, body=%q", body)
	}
	if !strings.Contains(body, "event: done") {
		t.Fatalf("expected a done record, body=%q", body)
	}

	select {
	case <-w.Done():
	default:
		t.Fatal("expected Done() to be closed once Run has returned")
	}
}

func TestWriterDropsDeltasUnderBackpressure(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewWriter(rec, Config{LowPriBuffer: 1})
	defer w.close()

	// Fill the low-priority lane without a consumer draining it.
	for i := 0; i < 5; i++ {
		if err := w.Emit(models.StreamEvent{Type: models.EventDelta, Data: models.DeltaData{Delta: "x"}}); err != nil {
			t.Fatalf("emit delta %d: %v", i, err)
		}
	}

	if w.DroppedCount() == 0 {
		t.Fatal("expected some deltas to be dropped under backpressure")
	}
}

func TestWriterReqDoneClosesDoneWithoutDrainingFurther(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewWriter(rec, Config{})

	reqDone := make(chan struct{})
	stopped := make(chan struct{})

	runFinished := make(chan struct{})
	go func() {
		w.Run(reqDone, stopped, 0)
		close(runFinished)
	}()

	close(reqDone)

	select {
	case <-runFinished:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after client disconnect")
	}

	select {
	case <-w.Done():
	default:
		t.Fatal("expected Done() to be closed after client disconnect")
	}
}

func TestWriterWritesHeartbeatComment(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewWriter(rec, Config{})

	reqDone := make(chan struct{})
	stopped := make(chan struct{})
	defer close(stopped)

	runFinished := make(chan struct{})
	go func() {
		w.Run(reqDone, stopped, 10*time.Millisecond)
		close(runFinished)
	}()

	time.Sleep(50 * time.Millisecond)
	close(reqDone)
	<-runFinished

	scanner := bufio.NewScanner(strings.NewReader(rec.Body.String()))
	var sawComment bool
	for scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), ": ") {
			sawComment = true
		}
	}
	if !sawComment {
		t.Fatalf("expected at least one heartbeat comment line, body=%q", rec.Body.String())
	}
}
