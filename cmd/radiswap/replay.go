package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"radiswap/internal/config"
	"radiswap/internal/ledger"
	"radiswap/internal/replay"
	"radiswap/internal/storage"
	"radiswap/internal/storage/postgres"
)

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReplay(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if cfg.MetricsAddr != "" {
		shutdown := serveMetrics(cfg.MetricsAddr, registry, logger)
		defer shutdown()
	}

	l := ledger.New(ledger.Options{
		Seed:       cfg.Seed,
		Registerer: registry,
		Logger:     logger.Named("ledger"),
	})

	opts := []replay.Option{
		replay.WithFailedSink(storage.NewJsonlStorage(cfg.Failed)),
	}

	var store *postgres.Store
	if cfg.PGDSN != "" {
		store, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		opts = append(opts, replay.WithRecorder(store))
	}

	if cfg.CheckpointEnabled {
		switch {
		case cfg.Checkpoint != "":
			opts = append(opts, replay.WithCheckpoint(replay.NewFileCheckpoint(cfg.Checkpoint, true)))
		case store != nil:
			opts = append(opts, replay.WithCheckpoint(&replay.DBCheckpoint{Store: store, Name: "replay:" + cfg.Seed}))
		}
	}

	runner := replay.NewRunner(replay.RunConfig{
		Input:        cfg.Input,
		BatchSize:    cfg.BatchSize,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, l, storage.NewJsonlStorage(cfg.Out), logger.Named("replay"), opts...)

	logger.Info("replay start",
		zap.String("input", cfg.Input),
		zap.String("out", cfg.Out),
		zap.String("failed", cfg.Failed),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("metrics_addr", cfg.MetricsAddr),
		zap.String("seed", cfg.Seed),
	)

	sum, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "instructions=%d resumed=%d committed=%d rejected=%d\n",
		sum.Total, sum.Resumed, sum.Committed, sum.Rejected)
	return err
}

// serveMetrics exposes reg on addr until the returned func is called.
func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("metrics listening", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
