package providers

import (
	"errors"
	"net/http"
	"testing"
)

func TestNewProviderErrorClassifiesFromMessage(t *testing.T) {
	tests := []struct {
		name   string
		cause  error
		reason FailoverReason
	}{
		{"timeout", errors.New("context deadline exceeded"), FailoverTimeout},
		{"rate limit", errors.New("429 rate limit exceeded"), FailoverRateLimit},
		{"auth", errors.New("401 unauthorized"), FailoverAuth},
		{"billing", errors.New("quota exceeded, billing required"), FailoverBilling},
		{"model unavailable", errors.New("model not found"), FailoverModelUnavailable},
		{"server error", errors.New("502 bad gateway"), FailoverServerError},
		{"unknown", errors.New("something weird happened"), FailoverUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe := NewProviderError("anthropic", "claude-sonnet-4", tt.cause)
			if pe.Reason != tt.reason {
				t.Fatalf("expected reason %q, got %q", tt.reason, pe.Reason)
			}
		})
	}
}

func TestWithStatusReclassifies(t *testing.T) {
	tests := []struct {
		status int
		reason FailoverReason
	}{
		{http.StatusUnauthorized, FailoverAuth},
		{http.StatusForbidden, FailoverAuth},
		{http.StatusPaymentRequired, FailoverBilling},
		{http.StatusTooManyRequests, FailoverRateLimit},
		{http.StatusBadRequest, FailoverInvalidRequest},
		{http.StatusNotFound, FailoverModelUnavailable},
		{http.StatusInternalServerError, FailoverServerError},
	}

	for _, tt := range tests {
		pe := (&ProviderError{Provider: "openai", Cause: errors.New("boom")}).WithStatus(tt.status)
		if pe.Reason != tt.reason {
			t.Fatalf("status %d: expected reason %q, got %q", tt.status, tt.reason, pe.Reason)
		}
	}
}

func TestRetryableOnlyForTransientReasons(t *testing.T) {
	retryable := []FailoverReason{FailoverRateLimit, FailoverTimeout, FailoverServerError}
	for _, r := range retryable {
		if !r.IsRetryable() {
			t.Errorf("expected %q to be retryable", r)
		}
	}

	permanent := []FailoverReason{FailoverBilling, FailoverAuth, FailoverInvalidRequest, FailoverModelUnavailable, FailoverUnknown}
	for _, r := range permanent {
		if r.IsRetryable() {
			t.Errorf("expected %q to be non-retryable", r)
		}
	}
}

func TestProviderErrorSatisfiesRetryabler(t *testing.T) {
	pe := NewProviderError("bedrock", "claude-3-sonnet", errors.New("503 service unavailable"))
	if !pe.Retryable() {
		t.Fatalf("expected a 503 classification to be retryable")
	}

	var err error = pe
	if !IsProviderError(err) {
		t.Fatalf("expected IsProviderError to unwrap a *ProviderError")
	}
}
