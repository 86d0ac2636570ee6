package store

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/sigmasight/agentcore/internal/cache"
	"github.com/sigmasight/agentcore/pkg/models"
)

// ConversationCache is the per-conversation, per-user tool-result cache
// described in §3 and §4.3. Key is (user id, tool name, canonicalized
// resolved arguments[, as_of_date]); value is the response envelope.
type ConversationCache struct {
	inner *cache.AsyncTTLCache[string, models.Envelope]
	ttl   time.Duration
}

// NewConversationCache builds a cache with the given TTL (5-10 minutes per
// the specification; the process default is 600s).
func NewConversationCache(ttl time.Duration) *ConversationCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &ConversationCache{
		inner: cache.NewAsyncTTLCache[string, models.Envelope](cache.Config{DefaultTTL: ttl}),
		ttl:   ttl,
	}
}

// Key canonicalizes (userID, toolName, canonicalArgs, asOfDate) into a cache
// key. canonicalArgs must already be a deterministic serialization (e.g.
// sorted-key JSON) of the resolved arguments. asOfDate is included only when
// the caller set a non-default as_of_date (see §4.3: cache is bypassed only
// in the sense that a distinct as_of_date is a distinct key, not a cache
// miss).
func Key(userID, toolName, canonicalArgs, asOfDate string) string {
	h := sha256.New()
	h.Write([]byte(userID))
	h.Write([]byte{0})
	h.Write([]byte(toolName))
	h.Write([]byte{0})
	h.Write([]byte(canonicalArgs))
	h.Write([]byte{0})
	h.Write([]byte(asOfDate))
	return hex.EncodeToString(h.Sum(nil))
}

// GetOrLoad returns the cached envelope for key, or calls load exactly once
// across concurrent callers racing on the same key.
func (c *ConversationCache) GetOrLoad(key string, load func() (models.Envelope, error)) (models.Envelope, error) {
	return c.inner.GetWithTTL(key, c.ttl, func(string) (models.Envelope, error) {
		return load()
	})
}
