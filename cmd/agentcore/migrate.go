package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/sigmasight/agentcore/internal/config"
	"github.com/sigmasight/agentcore/internal/store"
)

func buildMigrateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the conversation store's Postgres schema",
		Long: `Creates the conversations table and its indexes if they do not
already exist. A no-op, safely repeatable operation; there is no migration
history or rollback since the schema has not changed since its introduction.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	return cmd
}

func runMigrate(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Store.PostgresDSN == "" {
		return fmt.Errorf("migrate: store.postgres_dsn (or AGENTCORE_POSTGRES_DSN) is required")
	}

	pool, err := pgxpool.New(ctx, cfg.Store.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, store.Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	fmt.Println("schema applied")
	return nil
}
