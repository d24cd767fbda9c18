package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"radiswap/internal/config"
	"radiswap/internal/storage/postgres"
)

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadMigrate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("migrate start", zap.String("pg_dsn", redactDSN(cfg.PGDSN)))
	if err := postgres.Migrate(ctx, cfg.PGDSN); err != nil {
		return err
	}

	version, err := postgres.Version(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	logger.Info("migrate complete", zap.Int64("version", version))
	return nil
}
