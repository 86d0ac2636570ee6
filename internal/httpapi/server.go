// Package httpapi implements C8's client-facing HTTP surface: conversation
// creation and the SSE turn endpoint, gated by the auth package's bearer/
// cookie validation and per-user rate limiting.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sigmasight/agentcore/internal/agent"
	"github.com/sigmasight/agentcore/internal/agenterr"
	"github.com/sigmasight/agentcore/internal/auth"
	"github.com/sigmasight/agentcore/internal/logging"
	"github.com/sigmasight/agentcore/internal/observability"
	"github.com/sigmasight/agentcore/internal/reqcontext"
	"github.com/sigmasight/agentcore/internal/store"
	"github.com/sigmasight/agentcore/internal/stream"
)

// Server wires the authentication gate, conversation store, and turn
// orchestrator into the client-facing HTTP API.
type Server struct {
	Gate         *auth.Gate
	Store        store.Store
	Orchestrator *agent.Orchestrator
	Logger       *slog.Logger

	// Tracer, if set, wraps each request in a server span. Nil skips tracing.
	Tracer *observability.Tracer

	// HeartbeatInterval is forwarded to every stream.Writer. Zero disables
	// the heartbeat.
	HeartbeatInterval time.Duration
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Mux builds the route table: POST /v1/conversations, POST
// /v1/conversations/{id}/turns, and GET /healthz.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/v1/conversations", s.handleCreateConversation)
	mux.HandleFunc("/v1/conversations/", s.handleTurn)
	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

type createConversationResponse struct {
	ConversationID string `json:"conversation_id"`
	Mode           string `json:"mode"`
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.Tracer != nil {
		ctx, span := s.Tracer.TraceHTTPRequest(r.Context(), r.Method, "/v1/conversations")
		r = r.WithContext(ctx)
		defer span.End()
	}

	userID, _, err := s.Gate.Authenticate(r)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	ctx := reqcontext.WithRequestID(r.Context(), uuid.NewString())

	conv, err := s.Store.Create(ctx, userID)
	if err != nil {
		s.logger().Error("failed to create conversation", "user_id", userID, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "store_error", "failed to create conversation")
		return
	}

	writeJSON(w, http.StatusCreated, createConversationResponse{
		ConversationID: conv.ID,
		Mode:           string(conv.Mode),
	})
}

type turnRequest struct {
	Text string `json:"text"`
}

// handleTurn serves POST /v1/conversations/{id}/turns, streaming the
// resulting turn as Server-Sent Events. The path is matched manually since
// the route is registered on the "/v1/conversations/" prefix.
func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	conversationID, ok := parseTurnPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	if s.Tracer != nil {
		ctx, span := s.Tracer.TraceHTTPRequest(r.Context(), r.Method, "/v1/conversations/{id}/turns")
		r = r.WithContext(ctx)
		defer span.End()
	}

	userID, token, err := s.Gate.Authenticate(r)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}

	requestID := uuid.NewString()
	ctx := reqcontext.WithRequestID(r.Context(), requestID)

	log := logging.WithRequest(s.logger(), requestID, conversationID, userID)

	writer := stream.NewWriter(w, stream.Config{HeartbeatInterval: s.HeartbeatInterval})

	turnDone := make(chan struct{})
	go func() {
		defer close(turnDone)
		if err := s.Orchestrator.RunTurn(ctx, writer, userID, conversationID, token, req.Text); err != nil {
			log.Warn("turn ended with error", "error", err)
		}
	}()

	writer.Run(r.Context().Done(), turnDone, s.HeartbeatInterval)
}

func parseTurnPath(path string) (conversationID string, ok bool) {
	const prefix = "/v1/conversations/"
	const suffix = "/turns"
	if len(path) <= len(prefix)+len(suffix) {
		return "", false
	}
	if path[:len(prefix)] != prefix {
		return "", false
	}
	rest := path[len(prefix):]
	if len(rest) <= len(suffix) || rest[len(rest)-len(suffix):] != suffix {
		return "", false
	}
	return rest[:len(rest)-len(suffix)], true
}

func writeAuthError(w http.ResponseWriter, err error) {
	switch err {
	case agenterr.ErrRateLimited:
		writeJSONError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
	default:
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid credentials")
	}
}

func writeJSONError(w http.ResponseWriter, status int, reason, message string) {
	writeJSON(w, status, map[string]string{"error": message, "reason": reason})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
