package store

import (
	"testing"
	"time"

	"github.com/sigmasight/agentcore/pkg/models"
)

func TestMemStoreCreateDefaultsToGreenMode(t *testing.T) {
	s := NewMemStore(time.Minute)
	c, err := s.Create(t.Context(), "user-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Mode != models.ModeGreen {
		t.Fatalf("expected default mode green, got %s", c.Mode)
	}
}

func TestMemStoreCrossUserAccessIsNotFound(t *testing.T) {
	s := NewMemStore(time.Minute)
	c, _ := s.Create(t.Context(), "owner")

	if _, err := s.Get(t.Context(), "someone-else", c.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for cross-user access, got %v", err)
	}
}

func TestMemStoreModeChangeIsImmediatelyVisible(t *testing.T) {
	s := NewMemStore(time.Minute)
	c, _ := s.Create(t.Context(), "user-1")

	if err := s.UpdateMode(t.Context(), "user-1", c.ID, models.ModeViolet); err != nil {
		t.Fatalf("update mode: %v", err)
	}

	got, err := s.Get(t.Context(), "user-1", c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Mode != models.ModeViolet {
		t.Fatalf("expected violet, got %s", got.Mode)
	}
}

func TestMemStoreCacheIsPerConversation(t *testing.T) {
	s := NewMemStore(time.Minute)
	c1, _ := s.Create(t.Context(), "user-1")
	c2, _ := s.Create(t.Context(), "user-1")

	if s.Cache(c1.ID) == s.Cache(c2.ID) {
		t.Fatal("expected distinct caches per conversation")
	}
	if s.Cache(c1.ID) != s.Cache(c1.ID) {
		t.Fatal("expected the same cache instance on repeated lookup")
	}
}
