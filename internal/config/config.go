// Package config loads the process-level configuration: server binding,
// provider selection, conversation store backend, caps, rate limits, and
// the factor alias mapping. All values enumerated in this file are the ones
// named in the external interfaces section of the specification.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sigmasight/agentcore/internal/logging"
)

// Config is the root configuration structure, loaded once at startup and
// treated as an immutable snapshot thereafter.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Provider      ProviderConfig      `yaml:"provider"`
	Store         StoreConfig         `yaml:"store"`
	DataBackend   DataBackendConfig   `yaml:"data_backend"`
	Auth          AuthConfig          `yaml:"auth"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Stream        StreamConfig        `yaml:"stream"`
	Cache         CacheConfig         `yaml:"cache"`
	Caps          CapsConfig          `yaml:"caps"`
	Factors       FactorsConfig       `yaml:"factors"`
	Logging       logging.Config      `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig is the HTTP listen configuration.
type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
}

// ProviderConfig selects and configures the LLM provider.
type ProviderConfig struct {
	// Default is one of "anthropic", "openai", "bedrock".
	Default string `yaml:"default"`
	// Fallback names a second provider. It is handed to the orchestrator,
	// which sends every model round to Default; a failed stream is retried
	// once on Default and is not switched to Fallback.
	Fallback string `yaml:"fallback"`

	AnthropicAPIKey string `yaml:"-"` // env: AGENTCORE_ANTHROPIC_API_KEY
	OpenAIAPIKey    string `yaml:"-"` // env: AGENTCORE_OPENAI_API_KEY
	BedrockRegion   string `yaml:"bedrock_region"`

	DefaultModel  string `yaml:"default_model"`
	FallbackModel string `yaml:"fallback_model"`

	// RequestTimeoutSeconds is loaded from the config file; no component
	// reads it, and model rounds are not bounded by it.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
}

// StoreConfig selects the conversation store backend.
type StoreConfig struct {
	// Backend is "memory" or "postgres".
	Backend    string `yaml:"backend"`
	PostgresDSN string `yaml:"-"` // env: AGENTCORE_POSTGRES_DSN
}

// DataBackendConfig points the typed data client (C1) at the portfolio data
// backend.
type DataBackendConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// AuthConfig configures bearer/cookie validation.
type AuthConfig struct {
	JWTSigningKey string `yaml:"-"` // env: AGENTCORE_JWT_SIGNING_KEY
	CookieName    string `yaml:"cookie_name"`
}

// RateLimitConfig configures the per-user token bucket.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
}

// StreamConfig configures the SSE writer.
type StreamConfig struct {
	HeartbeatIntervalMS int `yaml:"heartbeat_interval_ms"`
	TurnTimeoutSeconds  int `yaml:"turn_timeout_seconds"`
}

// CacheConfig configures the per-conversation tool-result cache.
type CacheConfig struct {
	TTLSeconds int `yaml:"ttl_seconds"`
}

// CapsConfig enumerates the per-endpoint caps from §4.3 of the
// specification.
type CapsConfig struct {
	MaxQuoteSymbols           int `yaml:"max_quote_symbols"`
	DefaultLookbackDays       int `yaml:"default_lookback_days"`
	MaxLookbackDays           int `yaml:"max_lookback_days"`
	MaxHistoricalSymbols      int `yaml:"max_historical_symbols"`
	MaxPositionsRows          int `yaml:"max_positions_rows"`
	MaxPortfolioPositionsRows int `yaml:"max_portfolio_positions_rows"`
	MaxConversationTextLength int `yaml:"max_conversation_text_length"`
	ToolLoopRoundCap          int `yaml:"tool_loop_round_cap"`
}

// FactorsConfig is the factor alias → canonical ETF mapping.
type FactorsConfig struct {
	Aliases map[string]string `yaml:"aliases"`
}

// ObservabilityConfig configures the distributed tracer wrapping each
// provider round, tool dispatch, and inbound HTTP request.
type ObservabilityConfig struct {
	ServiceName  string  `yaml:"service_name"`
	Environment  string  `yaml:"environment"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// Default returns the baked-in configuration defaults, matching the values
// named in the specification (§6 Configuration, §4.3 cap policy, §9 open
// question resolutions).
func Default() Config {
	return Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080, MetricsPort: 9090},
		Provider: ProviderConfig{
			Default:               "anthropic",
			Fallback:              "openai",
			DefaultModel:          "claude-sonnet-4-20250514",
			FallbackModel:         "gpt-4o",
			RequestTimeoutSeconds: 30,
		},
		Store:       StoreConfig{Backend: "memory"},
		DataBackend: DataBackendConfig{BaseURL: "http://localhost:9000", TimeoutSeconds: 6},
		Auth:  AuthConfig{CookieName: "sigmasight_session"},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			Burst:             10,
		},
		Stream: StreamConfig{
			HeartbeatIntervalMS: 15000,
			TurnTimeoutSeconds:  120,
		},
		Cache: CacheConfig{TTLSeconds: 600},
		Caps: CapsConfig{
			MaxQuoteSymbols:           5,
			DefaultLookbackDays:       90,
			MaxLookbackDays:           180,
			MaxHistoricalSymbols:      5,
			MaxPositionsRows:          200,
			MaxPortfolioPositionsRows: 200,
			MaxConversationTextLength: 100,
			ToolLoopRoundCap:          8,
		},
		Factors: FactorsConfig{
			Aliases: map[string]string{
				"market":         "SPY",
				"value":          "VTV",
				"growth":         "VUG",
				"momentum":       "MTUM",
				"quality":        "QUAL",
				"size":           "SIZE",
				"sly":            "SIZE",
				"low_volatility": "USMV",
			},
		},
		Logging: logging.Config{Level: "info", Format: "json"},
		Observability: ObservabilityConfig{
			ServiceName:  "agentcore",
			Environment:  "development",
			SamplingRate: 1.0,
		},
	}
}

// Load reads a YAML config file, merges it over Default(), and applies
// secret overrides from the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AGENTCORE_ANTHROPIC_API_KEY"); v != "" {
		cfg.Provider.AnthropicAPIKey = v
	}
	if v := os.Getenv("AGENTCORE_OPENAI_API_KEY"); v != "" {
		cfg.Provider.OpenAIAPIKey = v
	}
	if v := os.Getenv("AGENTCORE_POSTGRES_DSN"); v != "" {
		cfg.Store.PostgresDSN = v
	}
	if v := os.Getenv("AGENTCORE_DATA_BACKEND_URL"); v != "" {
		cfg.DataBackend.BaseURL = v
	}
	if v := os.Getenv("AGENTCORE_JWT_SIGNING_KEY"); v != "" {
		cfg.Auth.JWTSigningKey = v
	}
}
