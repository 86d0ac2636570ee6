// Package logging wires up the process-wide structured logger. Every
// request-scoped logger downstream is derived from the base logger via
// With(...), never replaced with a package-global.
package logging

import (
	"log/slog"
	"os"
)

// Config controls the base logger's level and format.
type Config struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

// New builds the process-wide base logger from cfg.
func New(cfg Config) *slog.Logger {
	level := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRequest returns a child logger enriched with request-scoped fields.
// Empty fields are omitted.
func WithRequest(base *slog.Logger, requestID, conversationID, userID string) *slog.Logger {
	l := base
	if requestID != "" {
		l = l.With("request_id", requestID)
	}
	if conversationID != "" {
		l = l.With("conversation_id", conversationID)
	}
	if userID != "" {
		l = l.With("user_id", userID)
	}
	return l
}
