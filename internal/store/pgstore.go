package store

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sigmasight/agentcore/pkg/models"
)

// PGStore is a Postgres-backed Store implementation using pgx/v5. Per-record
// serialization is done in application code via a striped lock keyed on
// conversation id, rather than a database-level row lock held across an
// await point, matching the specification's "short-lived lock" requirement
// (§5 Shared resources).
type PGStore struct {
	pool *pgxpool.Pool

	stripes [256]sync.Mutex

	cachesMu sync.Mutex
	caches   map[string]*ConversationCache
	cacheTTL time.Duration
}

// NewPGStore builds a PGStore against an already-configured pgx pool. The
// caller owns pool's lifecycle (creation and Close).
func NewPGStore(pool *pgxpool.Pool, cacheTTL time.Duration) *PGStore {
	return &PGStore{
		pool:     pool,
		caches:   make(map[string]*ConversationCache),
		cacheTTL: cacheTTL,
	}
}

// Schema is the DDL this store expects. Migrations are out of scope (§1);
// this is provided for local development and test setup only.
const Schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id                  text PRIMARY KEY,
	user_id             text NOT NULL,
	mode                text NOT NULL,
	provider_conv_ref   text NOT NULL DEFAULT '',
	created_at          timestamptz NOT NULL,
	last_touched_at     timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS conversations_user_id_idx ON conversations (user_id);
`

func (s *PGStore) stripe(conversationID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(conversationID))
	return &s.stripes[h.Sum32()%uint32(len(s.stripes))]
}

func (s *PGStore) Create(ctx context.Context, userID string) (*models.Conversation, error) {
	now := time.Now().UTC()
	c := &models.Conversation{
		ID:            uuid.NewString(),
		UserID:        userID,
		Mode:          models.DefaultMode,
		CreatedAt:     now,
		LastTouchedAt: now,
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO conversations (id, user_id, mode, provider_conv_ref, created_at, last_touched_at)
		 VALUES ($1, $2, $3, '', $4, $5)`,
		c.ID, c.UserID, string(c.Mode), c.CreatedAt, c.LastTouchedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *PGStore) Get(ctx context.Context, userID, conversationID string) (*models.Conversation, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, mode, provider_conv_ref, created_at, last_touched_at
		 FROM conversations WHERE id = $1 AND user_id = $2`,
		conversationID, userID,
	)

	var c models.Conversation
	var mode string
	if err := row.Scan(&c.ID, &c.UserID, &mode, &c.ProviderConvRef, &c.CreatedAt, &c.LastTouchedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	c.Mode = models.Mode(mode)
	return &c, nil
}

func (s *PGStore) UpdateMode(ctx context.Context, userID, conversationID string, mode models.Mode) error {
	mu := s.stripe(conversationID)
	mu.Lock()
	defer mu.Unlock()

	tag, err := s.pool.Exec(ctx,
		`UPDATE conversations SET mode = $1, last_touched_at = $2 WHERE id = $3 AND user_id = $4`,
		string(mode), time.Now().UTC(), conversationID, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) UpdateProviderRef(ctx context.Context, userID, conversationID, ref string) error {
	mu := s.stripe(conversationID)
	mu.Lock()
	defer mu.Unlock()

	tag, err := s.pool.Exec(ctx,
		`UPDATE conversations SET provider_conv_ref = $1 WHERE id = $2 AND user_id = $3`,
		ref, conversationID, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) UpdateLastTouched(ctx context.Context, userID, conversationID string, at time.Time) error {
	mu := s.stripe(conversationID)
	mu.Lock()
	defer mu.Unlock()

	tag, err := s.pool.Exec(ctx,
		`UPDATE conversations SET last_touched_at = $1 WHERE id = $2 AND user_id = $3`,
		at.UTC(), conversationID, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) Cache(conversationID string) *ConversationCache {
	s.cachesMu.Lock()
	defer s.cachesMu.Unlock()

	if c, ok := s.caches[conversationID]; ok {
		return c
	}
	c := NewConversationCache(s.cacheTTL)
	s.caches[conversationID] = c
	return c
}
