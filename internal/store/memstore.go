package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sigmasight/agentcore/pkg/models"
)

// MemStore is an in-process Store implementation backed by a map guarded by
// a single store-wide mutex, used for tests and single-node deployments.
type MemStore struct {
	mu            sync.Mutex
	conversations map[string]*models.Conversation

	cachesMu sync.Mutex
	caches   map[string]*ConversationCache
	cacheTTL time.Duration
}

// NewMemStore builds an empty in-memory store. cacheTTL is applied to every
// per-conversation cache it creates.
func NewMemStore(cacheTTL time.Duration) *MemStore {
	return &MemStore{
		conversations: make(map[string]*models.Conversation),
		caches:        make(map[string]*ConversationCache),
		cacheTTL:      cacheTTL,
	}
}

func (s *MemStore) Create(ctx context.Context, userID string) (*models.Conversation, error) {
	now := time.Now().UTC()
	c := &models.Conversation{
		ID:            uuid.NewString(),
		UserID:        userID,
		Mode:          models.DefaultMode,
		CreatedAt:     now,
		LastTouchedAt: now,
	}

	s.mu.Lock()
	s.conversations[c.ID] = c
	s.mu.Unlock()

	copy := *c
	return &copy, nil
}

func (s *MemStore) Get(ctx context.Context, userID, conversationID string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[conversationID]
	if !ok || c.UserID != userID {
		return nil, ErrNotFound
	}
	copy := *c
	return &copy, nil
}

func (s *MemStore) UpdateMode(ctx context.Context, userID, conversationID string, mode models.Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[conversationID]
	if !ok || c.UserID != userID {
		return ErrNotFound
	}
	c.Mode = mode
	c.LastTouchedAt = time.Now().UTC()
	return nil
}

func (s *MemStore) UpdateProviderRef(ctx context.Context, userID, conversationID, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[conversationID]
	if !ok || c.UserID != userID {
		return ErrNotFound
	}
	c.ProviderConvRef = ref
	return nil
}

func (s *MemStore) UpdateLastTouched(ctx context.Context, userID, conversationID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[conversationID]
	if !ok || c.UserID != userID {
		return ErrNotFound
	}
	c.LastTouchedAt = at.UTC()
	return nil
}

func (s *MemStore) Cache(conversationID string) *ConversationCache {
	s.cachesMu.Lock()
	defer s.cachesMu.Unlock()

	if c, ok := s.caches[conversationID]; ok {
		return c
	}
	c := NewConversationCache(s.cacheTTL)
	s.caches[conversationID] = c
	return c
}
