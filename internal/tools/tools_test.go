package tools

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sigmasight/agentcore/internal/agenterr"
	"github.com/sigmasight/agentcore/internal/auth"
	"github.com/sigmasight/agentcore/internal/config"
	"github.com/sigmasight/agentcore/internal/dataclient"
	"github.com/sigmasight/agentcore/internal/reqcontext"
	"github.com/sigmasight/agentcore/internal/store"
	"github.com/sigmasight/agentcore/pkg/models"
)

func fixedClock() time.Time {
	return time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
}

func TestPricesQuotesTruncatesToFiveSymbols(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		result := dataclient.PricesQuotesResult{
			AsOf: "2026-07-31T12:00:00Z",
			Quotes: []dataclient.Quote{
				{Symbol: "AAPL", Price: 1, AsOf: "2026-07-31T12:00:00Z"},
				{Symbol: "MSFT", Price: 2, AsOf: "2026-07-31T12:00:00Z"},
				{Symbol: "GOOG", Price: 3, AsOf: "2026-07-31T12:00:00Z"},
				{Symbol: "AMZN", Price: 4, AsOf: "2026-07-31T12:00:00Z"},
				{Symbol: "TSLA", Price: 5, AsOf: "2026-07-31T12:00:00Z"},
			},
		}
		_ = json.NewEncoder(w).Encode(result)
	}))
	defer srv.Close()

	client := dataclient.New(dataclient.Config{BaseURL: srv.URL, TimeoutSeconds: 5})
	st := store.NewMemStore(10 * time.Minute)
	tool := &PricesQuotes{Client: client, Store: st, Caps: config.CapsConfig{MaxQuoteSymbols: 5}, Clock: fixedClock}

	ctx := t.Context()
	ctx = auth.WithUserID(ctx, "user-1")
	ctx = reqcontext.WithBearerToken(ctx, "test-token")
	ctx = reqcontext.WithConversationID(ctx, "conv-1")

	params, _ := json.Marshal(map[string]any{
		"symbols": []string{"AAPL", "MSFT", "GOOG", "AMZN", "TSLA", "NVDA", "META"},
	})

	out, err := tool.Execute(ctx, params)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	var env models.Envelope
	if err := json.Unmarshal(out, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if !env.Meta.Truncated {
		t.Fatal("expected truncated=true for 7 requested symbols")
	}
	if env.Meta.RowsReturned != 5 {
		t.Fatalf("expected 5 rows returned, got %d", env.Meta.RowsReturned)
	}
	if len(env.Meta.SuggestedParams) == 0 {
		t.Fatal("expected suggested_params to be set")
	}
}

func TestPositionsDetailsRejectsMissingSelector(t *testing.T) {
	client := dataclient.New(dataclient.Config{BaseURL: "http://unused.invalid"})
	st := store.NewMemStore(10 * time.Minute)
	tool := &PositionsDetails{Client: client, Store: st, Caps: config.CapsConfig{MaxPositionsRows: 200}, Clock: fixedClock}

	ctx := t.Context()
	ctx = auth.WithUserID(ctx, "user-1")
	ctx = reqcontext.WithConversationID(ctx, "conv-1")

	_, err := tool.Execute(ctx, json.RawMessage(`{}`))
	if err == nil {
		t.Fatal("expected an error when neither portfolio_id nor position_ids is supplied")
	}
	toolErr, ok := err.(*agenterr.ToolError)
	if !ok {
		t.Fatalf("expected *agenterr.ToolError, got %T", err)
	}
	if toolErr.Retryable() {
		t.Fatal("expected a non-retryable input error")
	}
}

func TestPricesHistoricalClampsLookbackWindow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("lookback_days"); got != "180" {
			t.Errorf("expected backend to receive clamped lookback_days=180, got %s", got)
		}
		result := dataclient.PricesHistoricalResult{
			AsOf: "2026-07-31T12:00:00Z",
			Series: []dataclient.SymbolSeries{
				{Symbol: "AAPL", Bars: []dataclient.PriceBar{{Date: "2026-07-30", Close: 100}}},
			},
		}
		_ = json.NewEncoder(w).Encode(result)
	}))
	defer srv.Close()

	client := dataclient.New(dataclient.Config{BaseURL: srv.URL, TimeoutSeconds: 5})
	st := store.NewMemStore(10 * time.Minute)
	caps := config.CapsConfig{DefaultLookbackDays: 90, MaxLookbackDays: 180, MaxHistoricalSymbols: 5}
	tool := &PricesHistorical{Client: client, Store: st, Caps: caps, Clock: fixedClock}

	ctx := t.Context()
	ctx = auth.WithUserID(ctx, "user-1")
	ctx = reqcontext.WithConversationID(ctx, "conv-2")

	params, _ := json.Marshal(map[string]any{"portfolio_id": "p-1", "lookback_days": 365})
	out, err := tool.Execute(ctx, params)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	var env models.Envelope
	if err := json.Unmarshal(out, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if !env.Meta.Truncated {
		t.Fatal("expected truncated=true when lookback_days exceeds the cap")
	}

	var applied struct {
		LookbackDays int `json:"lookback_days"`
	}
	if err := json.Unmarshal(env.Meta.Applied, &applied); err != nil {
		t.Fatalf("unmarshal applied: %v", err)
	}
	if applied.LookbackDays != 180 {
		t.Fatalf("expected applied.lookback_days=180, got %d", applied.LookbackDays)
	}
}

func TestToolResultCacheCollapsesIdenticalCalls(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		result := dataclient.PositionsDetailsResult{
			AsOf:      "2026-07-31T12:00:00Z",
			Positions: []dataclient.Holding{{PositionID: "pos-1", Symbol: "AAPL", Value: 100}},
		}
		_ = json.NewEncoder(w).Encode(result)
	}))
	defer srv.Close()

	client := dataclient.New(dataclient.Config{BaseURL: srv.URL, TimeoutSeconds: 5})
	st := store.NewMemStore(10 * time.Minute)
	tool := &PositionsDetails{Client: client, Store: st, Caps: config.CapsConfig{MaxPositionsRows: 200}, Clock: fixedClock}

	ctx := t.Context()
	ctx = auth.WithUserID(ctx, "user-1")
	ctx = reqcontext.WithBearerToken(ctx, "test-token")
	ctx = reqcontext.WithConversationID(ctx, "conv-3")

	params, _ := json.Marshal(map[string]any{"portfolio_id": "p-1"})

	out1, err := tool.Execute(ctx, params)
	if err != nil {
		t.Fatalf("first execute: %v", err)
	}
	out2, err := tool.Execute(ctx, params)
	if err != nil {
		t.Fatalf("second execute: %v", err)
	}

	if string(out1) != string(out2) {
		t.Fatalf("expected identical payloads from cache hit, got %s vs %s", out1, out2)
	}
	if hits != 1 {
		t.Fatalf("expected exactly one upstream request, got %d", hits)
	}
}
