// Package store implements C5, the conversation store: per-record
// serialized persistence of conversation metadata plus the per-conversation
// tool-result cache.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/sigmasight/agentcore/pkg/models"
)

// ErrNotFound is returned both for a genuinely missing conversation and for
// a conversation owned by a different user — ownership checks never leak
// existence via a distinct permission-denied error.
var ErrNotFound = errors.New("conversation not found")

// Store persists conversation records. Every read/write is scoped to the
// calling user's identifier.
type Store interface {
	// Create allocates a new conversation for userID in the default mode.
	Create(ctx context.Context, userID string) (*models.Conversation, error)

	// Get fetches a conversation by id, scoped to userID. Returns
	// ErrNotFound both when the id doesn't exist and when it belongs to a
	// different user.
	Get(ctx context.Context, userID, conversationID string) (*models.Conversation, error)

	// UpdateMode changes the conversation's mode.
	UpdateMode(ctx context.Context, userID, conversationID string, mode models.Mode) error

	// UpdateProviderRef sets the opaque provider-side memory reference.
	UpdateProviderRef(ctx context.Context, userID, conversationID, ref string) error

	// UpdateLastTouched bumps the conversation's last-activity timestamp.
	UpdateLastTouched(ctx context.Context, userID, conversationID string, at time.Time) error

	// Cache returns the per-conversation tool-result cache, creating one on
	// first use.
	Cache(conversationID string) *ConversationCache
}
