package dataclient

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestGetRetriesTransientFaultThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, TimeoutSeconds: 5})
	c.retryCfg.InitialDelay = 0

	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.Get(t.Context(), "token", "/portfolio/p1", nil, &out); err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if !out.OK {
		t.Fatal("expected decoded response")
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls (2 failures + 1 success), got %d", calls)
	}
}

func TestGetDoesNotRetryPermanentClientError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad portfolio id"}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, TimeoutSeconds: 5})
	c.retryCfg.InitialDelay = 0

	err := c.Get(t.Context(), "token", "/portfolio/bad", nil, nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	dcErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if dcErr.Retryable {
		t.Fatal("expected 400 to be classified non-retryable")
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 call (no retry on 4xx), got %d", calls)
	}
}
