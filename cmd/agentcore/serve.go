package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/sigmasight/agentcore/internal/agent"
	"github.com/sigmasight/agentcore/internal/agent/providers"
	"github.com/sigmasight/agentcore/internal/auth"
	"github.com/sigmasight/agentcore/internal/config"
	"github.com/sigmasight/agentcore/internal/dataclient"
	"github.com/sigmasight/agentcore/internal/httpapi"
	"github.com/sigmasight/agentcore/internal/logging"
	"github.com/sigmasight/agentcore/internal/observability"
	"github.com/sigmasight/agentcore/internal/prompts"
	"github.com/sigmasight/agentcore/internal/ratelimit"
	"github.com/sigmasight/agentcore/internal/registry"
	"github.com/sigmasight/agentcore/internal/store"
	"github.com/sigmasight/agentcore/internal/tools"
)

func buildServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the agentcore HTTP server",
		Long: `Start the agentcore HTTP server: loads configuration, wires the
conversation store, tool registry, prompt library, and LLM providers, then
serves the conversation and turn-streaming API until a SIGINT/SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	return cmd
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(cfg.Logging)
	logger.Info("agentcore starting", "version", version, "commit", commit)

	conversationStore, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build store: %w", err)
	}
	defer closeStore()

	dataClient := dataclient.New(dataclient.Config{
		BaseURL:        cfg.DataBackend.BaseURL,
		TimeoutSeconds: cfg.DataBackend.TimeoutSeconds,
	})

	reg := registry.New()
	tools.RegisterAll(reg, tools.Deps{
		Client:         dataClient,
		Store:          conversationStore,
		Caps:           cfg.Caps,
		FactorAliases:  tools.NewFactorAliases(cfg.Factors.Aliases, nil),
		FactorLookback: 150,
		Clock:          time.Now,
	})

	providerMap, err := buildProviders(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build providers: %w", err)
	}

	tracer := observability.NewTracer(observability.TraceConfig{
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.Observability.Environment,
		SamplingRate:   cfg.Observability.SamplingRate,
	})

	orchestrator := &agent.Orchestrator{
		Store:             conversationStore,
		Registry:          reg,
		Prompts:           prompts.New(),
		Providers:         providerMap,
		Default:           cfg.Provider.Default,
		Fallback:          cfg.Provider.Fallback,
		Model:             cfg.Provider.DefaultModel,
		ToolLoopRoundCap:  cfg.Caps.ToolLoopRoundCap,
		ToolConcurrency:   4,
		MaxTokens:         4096,
		MaxTurnTextLength: cfg.Caps.MaxConversationTextLength,
		Logger:            logger,
		Tracer:            tracer,
	}

	validator := auth.NewTokenValidator(cfg.Auth.JWTSigningKey)
	limiter := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Burst:             cfg.RateLimit.Burst,
	})
	gate := auth.NewGate(validator, limiter, cfg.Auth.CookieName)

	api := &httpapi.Server{
		Gate:              gate,
		Store:             conversationStore,
		Orchestrator:      orchestrator,
		Logger:            logger,
		Tracer:            tracer,
		HeartbeatInterval: time.Duration(cfg.Stream.HeartbeatIntervalMS) * time.Millisecond,
	}

	mux := api.Mux()
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	logger.Info("http server started", "addr", addr)

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown error", "error", err)
	}
	return nil
}

func buildStore(ctx context.Context, cfg config.Config) (store.Store, func(), error) {
	cacheTTL := time.Duration(cfg.Cache.TTLSeconds) * time.Second

	switch cfg.Store.Backend {
	case "postgres":
		if cfg.Store.PostgresDSN == "" {
			return nil, nil, fmt.Errorf("store.postgres_dsn (or AGENTCORE_POSTGRES_DSN) is required for the postgres backend")
		}
		pool, err := pgxpool.New(ctx, cfg.Store.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		return store.NewPGStore(pool, cacheTTL), pool.Close, nil
	default:
		return store.NewMemStore(cacheTTL), func() {}, nil
	}
}

func buildProviders(ctx context.Context, cfg config.Config) (map[string]agent.LLMProvider, error) {
	providerMap := make(map[string]agent.LLMProvider)

	if cfg.Provider.AnthropicAPIKey != "" {
		p, err := providers.NewAnthropicProvider(providers.AnthropicConfig{
			APIKey:       cfg.Provider.AnthropicAPIKey,
			DefaultModel: cfg.Provider.DefaultModel,
		})
		if err != nil {
			return nil, fmt.Errorf("anthropic provider: %w", err)
		}
		providerMap["anthropic"] = p
	}

	providerMap["openai"] = providers.NewOpenAIProvider(cfg.Provider.OpenAIAPIKey)

	if cfg.Provider.BedrockRegion != "" {
		p, err := providers.NewBedrockProvider(ctx, providers.BedrockConfig{Region: cfg.Provider.BedrockRegion})
		if err != nil {
			return nil, fmt.Errorf("bedrock provider: %w", err)
		}
		providerMap["bedrock"] = p
	}

	if _, ok := providerMap[cfg.Provider.Default]; !ok {
		return nil, fmt.Errorf("default provider %q is not configured (check its API key/region)", cfg.Provider.Default)
	}

	return providerMap, nil
}
