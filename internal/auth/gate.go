package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/sigmasight/agentcore/internal/agenterr"
	"github.com/sigmasight/agentcore/internal/ratelimit"
)

type contextKey int

const userIDKey contextKey = iota

// WithUserID returns a context carrying the resolved user identifier.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the user identifier stashed by the gate, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey).(string)
	return v, ok
}

// Gate implements C8: bearer/cookie token validation plus per-user rate
// limiting, gating every client-facing endpoint.
type Gate struct {
	validator  *TokenValidator
	limiter    *ratelimit.Limiter
	cookieName string
}

// NewGate builds a Gate from a token validator, rate limiter, and the
// session cookie name to accept as a bearer-token fallback. The cookie is
// accepted on every request the Gate authenticates, not only streaming ones.
func NewGate(validator *TokenValidator, limiter *ratelimit.Limiter, cookieName string) *Gate {
	if cookieName == "" {
		cookieName = "sigmasight_session"
	}
	return &Gate{validator: validator, limiter: limiter, cookieName: cookieName}
}

// Authenticate resolves the bearer token from the Authorization header, or
// from the configured session cookie as a fallback, validates it, and
// checks the per-user rate limit. It returns the resolved user id and the
// token that authenticated it — callers must forward this token, not
// re-derive it from the request, since a cookie-authenticated request has
// no Authorization header to re-extract — or a classified
// agenterr.ToolError-free sentinel describing why the request was rejected.
func (g *Gate) Authenticate(r *http.Request) (userID string, token string, err error) {
	token = bearerFromHeader(r)
	if token == "" {
		token = bearerFromCookie(r, g.cookieName)
	}
	if token == "" {
		return "", "", agenterr.ErrUnauthorized
	}

	userID, verr := g.validator.Validate(token)
	if verr != nil {
		return "", "", agenterr.ErrUnauthorized
	}

	if g.limiter != nil && !g.limiter.Allow(userID) {
		return "", "", agenterr.ErrRateLimited
	}

	return userID, token, nil
}

func bearerFromHeader(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[len("bearer "):])
}

func bearerFromCookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
