package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/storefront-estimator/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/storefront-estimator/internal/adapter/kafka"
	"github.com/couchcryptid/storefront-estimator/internal/adapter/postgres"
	"github.com/couchcryptid/storefront-estimator/internal/config"
	"github.com/couchcryptid/storefront-estimator/internal/domain"
	"github.com/couchcryptid/storefront-estimator/internal/estimator"
	"github.com/couchcryptid/storefront-estimator/internal/observability"
	"github.com/couchcryptid/storefront-estimator/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scoring, err := config.LoadScoringConfig(cfg.ScoringConfigPath)
	if err != nil {
		logger.Error("failed to load scoring config", "error", err)
		os.Exit(1)
	}

	collab, err := buildCollaborators(ctx, cfg, metrics, logger)
	if err != nil {
		logger.Error("failed to configure collaborators", "error", err)
		os.Exit(1)
	}

	engine := domain.NewEngine(buildWeather(cfg, metrics, logger), logger,
		domain.WithScoringConfig(scoring),
		domain.WithStrictNormalization(cfg.AreaStrictNormalization),
	)
	svc := estimator.NewService(engine, collab, metrics, logger)

	var recorder *postgres.Recorder
	if cfg.PersistenceEnabled() {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		recorder = postgres.NewRecorder(db)
		if err := recorder.EnsureSchema(ctx); err != nil {
			logger.Error("failed to create schema", "error", err)
			os.Exit(1)
		}
		logger.Info("estimate persistence enabled")
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(svc)

	var loader pipeline.BatchLoader = writer
	var store httpadapter.EstimateStore
	checks := readinessChecks{}
	if recorder != nil {
		loader = pipeline.NewFanOutLoader(writer, logger, recorder)
		store = recorder
		checks = append(checks, recorder)
	}

	p := pipeline.New(reader, transformer, loader, logger, metrics, cfg.BatchSize)
	checks = append(checks, p)

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, store, checks, metrics, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// readinessChecks is ready when every check passes.
type readinessChecks []sharedobs.ReadinessChecker

func (c readinessChecks) CheckReadiness(ctx context.Context) error {
	for _, check := range c {
		if err := check.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}
