package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swapCore/internal/config"
	"swapCore/internal/engine"
	"swapCore/internal/ledger"
	"swapCore/internal/simulate"
	"swapCore/internal/sink"
	"swapCore/internal/sink/postgres"
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

	if cfg.Input == "" {
		return fmt.Errorf("input path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sinks sink.Multi
	if cfg.Out != "" {
		sinks = append(sinks, sink.NewJsonlSink(cfg.Out))
	}

	var store *postgres.Store
	if cfg.PGDSN != "" {
		store, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		sinks = append(sinks, store)
	}

	var events sink.EventSink
	if len(sinks) > 0 {
		events = sinks
	}

	tokens := ledger.NewMemoryLedger()
	clock := simulate.NewClock()
	eng := engine.NewEngine(engine.NewRegistry(), tokens, events, logger)
	eng.SetClock(clock.Now)

	var stateStore simulate.StateStore
	if cfg.StateFile != "" {
		stateStore = &simulate.FileStateStore{Path: cfg.StateFile}
	} else if store != nil {
		stateStore = &simulate.DBStateStore{Store: store, Name: "replay"}
	}

	var pools simulate.PoolStore
	if store != nil {
		pools = store
	}

	runner := simulate.NewRunner(simulate.Config{
		BatchSize:  cfg.BatchSize,
		StateStore: stateStore,
	}, eng, tokens, clock, pools, logger)

	logger.Info("replay start",
		zap.String("in", cfg.Input),
		zap.String("out", cfg.Out),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Int("batch_size", cfg.BatchSize),
	)

	return runner.Run(ctx, cfg.Input)
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
