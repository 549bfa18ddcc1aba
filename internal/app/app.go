// Package app wires the service together and exposes its run modes:
//
//   - Serve mode: HTTP JSON API plus health probes and metrics
//   - Worker mode: periodic heat recompute and nightly recommendation batch
//   - All mode: both in one process, for small deployments
//
// Each mode can run independently so the API tier and the batch tier scale
// separately.
package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/playradar/playradar/internal/api"
	"github.com/playradar/playradar/internal/cache"
	"github.com/playradar/playradar/internal/heat"
	"github.com/playradar/playradar/internal/platform/config"
	"github.com/playradar/playradar/internal/platform/observability"
	"github.com/playradar/playradar/internal/platform/worker"
	"github.com/playradar/playradar/internal/recommend"
	db "github.com/playradar/playradar/internal/storage"
)

const (
	heatJobName = "heat-recompute"
	recJobName  = "recommendation-batch"

	heatJobTimeout = time.Hour
	recJobTimeout  = 6 * time.Hour
)

// App holds the wired services and provides methods to run each mode.
type App struct {
	cfg       *config.Config
	database  *db.DB
	store     cache.Cache
	logger    *zerolog.Logger
	heat      *heat.Service
	recommend *recommend.Service
}

// New wires the heat and recommendation services against the database and
// cache.
func New(cfg *config.Config, database *db.DB, store cache.Cache, logger *zerolog.Logger) *App {
	heatSvc := heat.NewService(database, logger, heat.Options{
		Lookback:   time.Duration(cfg.HeatLookbackDays) * 24 * time.Hour,
		RatePerSec: cfg.HeatRatePerSec,
	})

	recSvc := recommend.NewService(database, store, logger, recommend.Options{
		RecTTL:  cfg.RecCacheTTL,
		ListTTL: cfg.ListCacheTTL,
	})

	return &App{
		cfg:       cfg,
		database:  database,
		store:     store,
		logger:    logger,
		heat:      heatSvc,
		recommend: recSvc,
	}
}

// RunServe serves the JSON API together with health probes and metrics,
// blocking until the context is canceled.
func (a *App) RunServe(ctx context.Context) error {
	handler := api.NewHandler(a.recommend, a.heat, a.database, a.logger)
	server := observability.NewServerWithAPI(a.database, a.cfg.HTTPPort, handler.Routes(), a.logger)

	return server.Start(ctx)
}

// RunWorker drives the two periodic jobs until the context is canceled.
// Each job takes a Postgres advisory lock, so running several worker
// replicas is safe.
func (a *App) RunWorker(ctx context.Context, once bool) error {
	if once {
		a.runHeatOnce(ctx)
		a.runRecommendationsOnce(ctx)

		return nil
	}

	// Standalone worker replicas still expose probes and metrics.
	go func() {
		server := observability.NewServer(a.database, a.cfg.HTTPPort, a.logger)
		if err := server.Start(ctx); err != nil {
			a.logger.Error().Err(err).Msg("worker health server error")
		}
	}()

	return a.runJobs(ctx)
}

// RunAll runs the API server and the worker loop in one process.
func (a *App) RunAll(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- a.runJobs(ctx)
	}()

	if err := a.RunServe(ctx); err != nil {
		return err
	}

	return <-errCh
}

func (a *App) runJobs(ctx context.Context) error {
	return worker.Run(ctx, worker.Config{
		Name: "playradar-worker",
		Jobs: []worker.Job{
			{Name: heatJobName, Interval: a.cfg.HeatTickInterval, Run: a.runHeatOnce},
			{Name: recJobName, Interval: a.cfg.RecTickInterval, Run: a.runRecommendationsOnce},
		},
		RunOnStart: true,
		Logger:     a.logger,
	})
}

func (a *App) runHeatOnce(ctx context.Context) {
	err := worker.RunWithTimeout(ctx, heatJobTimeout, func(ctx context.Context) error {
		result, err := a.heat.RecomputeAllLocked(ctx)
		if err != nil {
			return err
		}

		a.logger.Info().Int("updated", result.Updated).Int("skipped", result.Skipped).Msg("heat recompute finished")

		return nil
	})
	if err != nil {
		a.logger.Error().Err(err).Msg("heat recompute failed")
	}
}

func (a *App) runRecommendationsOnce(ctx context.Context) {
	err := worker.RunWithTimeout(ctx, recJobTimeout, func(ctx context.Context) error {
		succeeded, failed, err := a.recommend.GenerateForAll(ctx)
		if err != nil {
			return err
		}

		a.logger.Info().Int("succeeded", succeeded).Int("failed", failed).Msg("recommendation batch finished")

		return nil
	})
	if err != nil {
		a.logger.Error().Err(err).Msg("recommendation batch failed")
	}
}
