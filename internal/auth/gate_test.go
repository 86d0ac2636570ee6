package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sigmasight/agentcore/internal/agenterr"
	"github.com/sigmasight/agentcore/internal/ratelimit"
)

func newTestGate(t *testing.T) (*Gate, *TokenValidator) {
	t.Helper()
	v := NewTokenValidator("test-signing-key")
	g := NewGate(v, ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 60, Burst: 2}), "sigmasight_session")
	return g, v
}

func TestGateAuthenticatesBearerHeader(t *testing.T) {
	g, v := newTestGate(t)
	token, err := v.Issue("user-1", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/turn", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	userID, gotToken, err := g.Authenticate(req)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("expected user-1, got %q", userID)
	}
	if gotToken != token {
		t.Fatalf("expected resolved token %q, got %q", token, gotToken)
	}
}

func TestGateAuthenticatesCookieFallback(t *testing.T) {
	g, v := newTestGate(t)
	token, _ := v.Issue("user-2", time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/turn", nil)
	req.AddCookie(&http.Cookie{Name: "sigmasight_session", Value: token})

	userID, gotToken, err := g.Authenticate(req)
	if err != nil {
		t.Fatalf("expected success via cookie, got %v", err)
	}
	if userID != "user-2" {
		t.Fatalf("expected user-2, got %q", userID)
	}
	if gotToken != token {
		t.Fatalf("expected cookie token %q forwarded as resolved token, got %q", token, gotToken)
	}
}

func TestGateRejectsMissingCredentials(t *testing.T) {
	g, _ := newTestGate(t)
	req := httptest.NewRequest(http.MethodPost, "/turn", nil)

	if _, _, err := g.Authenticate(req); err != agenterr.ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestGateEnforcesRateLimit(t *testing.T) {
	g, v := newTestGate(t)
	token, _ := v.Issue("user-3", time.Hour)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/turn", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		if _, _, err := g.Authenticate(req); err != nil {
			t.Fatalf("request %d: expected success within burst, got %v", i, err)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/turn", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if _, _, err := g.Authenticate(req); err != agenterr.ErrRateLimited {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}
