package heat

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/playradar/playradar/internal/platform/observability"
	db "github.com/playradar/playradar/internal/storage"
)

const defaultBatchPageSize = 500

// Store is the storage surface the heat engine needs.
type Store interface {
	GetAlgoConfig(ctx context.Context) (*db.AlgoConfig, error)
	GetGame(ctx context.Context, id int64) (*db.Game, error)
	ListGamesAfter(ctx context.Context, afterID int64, limit int) ([]db.Game, error)
	PostsForGameSince(ctx context.Context, gameID int64, cutoff time.Time) ([]db.Post, error)
	UpdateGameHeat(ctx context.Context, gameID int64, static, dynamic, total float64) error
	TryAcquireAdvisoryLock(ctx context.Context, lockID int64) (bool, error)
	ReleaseAdvisoryLock(ctx context.Context, lockID int64) error
}

// BatchResult summarizes a catalog-wide recompute. A skipped game is one
// whose computation or write failed; the batch continues past it.
type BatchResult struct {
	Updated int
	Skipped int
}

// Service computes and persists heat scores.
type Service struct {
	store    Store
	logger   *zerolog.Logger
	lookback time.Duration
	limiter  *rate.Limiter
	pageSize int
	now      func() time.Time
}

// Options configures a heat Service.
type Options struct {
	// Lookback bounds how far back dynamic heat considers posts.
	Lookback time.Duration

	// RatePerSec bounds per-game DB load during batch recompute. Zero
	// disables pacing.
	RatePerSec float64

	// PageSize is the catalog page size for the batch walk.
	PageSize int

	// Now overrides the clock, for tests.
	Now func() time.Time
}

func NewService(store Store, logger *zerolog.Logger, opts Options) *Service {
	if opts.Lookback <= 0 {
		opts.Lookback = 30 * 24 * time.Hour
	}

	if opts.PageSize <= 0 {
		opts.PageSize = defaultBatchPageSize
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	var limiter *rate.Limiter
	if opts.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), 1)
	}

	return &Service{
		store:    store,
		logger:   logger,
		lookback: opts.Lookback,
		limiter:  limiter,
		pageSize: opts.PageSize,
		now:      opts.Now,
	}
}

// ComputeGameHeat computes the triple for one game under the given config
// without persisting it.
func (s *Service) ComputeGameHeat(ctx context.Context, cfg *db.AlgoConfig, game *db.Game) (static, dynamic, total float64, err error) {
	now := s.now()

	posts, err := s.store.PostsForGameSince(ctx, game.ID, now.Add(-s.lookback))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("load posts for game %d: %w", game.ID, err)
	}

	static = StaticHeat(cfg, game)
	dynamic = DynamicHeat(cfg, posts, now)
	total = TotalHeat(cfg, static, dynamic)

	return static, dynamic, total, nil
}

// UpdateGameHeat computes and persists the triple for one game.
func (s *Service) UpdateGameHeat(ctx context.Context, cfg *db.AlgoConfig, game *db.Game) error {
	static, dynamic, total, err := s.ComputeGameHeat(ctx, cfg, game)
	if err != nil {
		return err
	}

	if err := s.store.UpdateGameHeat(ctx, game.ID, static, dynamic, total); err != nil {
		return fmt.Errorf("persist heat for game %d: %w", game.ID, err)
	}

	return nil
}

// RecomputeGame recomputes and persists the triple for a single game,
// for targeted refreshes after a burst of engagement.
func (s *Service) RecomputeGame(ctx context.Context, gameID int64) error {
	cfg, err := s.store.GetAlgoConfig(ctx)
	if err != nil {
		return fmt.Errorf("load algo config: %w", err)
	}

	game, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return err
	}

	return s.UpdateGameHeat(ctx, cfg, game)
}

// RecomputeAll walks the whole catalog and recomputes every game's heat.
// A malformed config aborts the run since every game depends on it
// identically; a single game's failure is logged, counted and skipped.
// Stopping mid-way leaves a self-healing mix of fresh and stale rows.
func (s *Service) RecomputeAll(ctx context.Context) (BatchResult, error) {
	var result BatchResult

	cfg, err := s.store.GetAlgoConfig(ctx)
	if err != nil {
		return result, fmt.Errorf("load algo config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return result, fmt.Errorf("algo config unusable for batch: %w", err)
	}

	start := s.now()
	defer func() {
		observability.HeatRecomputeDuration.Observe(time.Since(start).Seconds())
	}()

	var afterID int64

	for {
		games, err := s.store.ListGamesAfter(ctx, afterID, s.pageSize)
		if err != nil {
			return result, fmt.Errorf("list games after %d: %w", afterID, err)
		}

		if len(games) == 0 {
			break
		}

		for i := range games {
			game := &games[i]
			afterID = game.ID

			if err := ctx.Err(); err != nil {
				return result, fmt.Errorf("heat recompute interrupted: %w", err)
			}

			if err := s.pace(ctx); err != nil {
				return result, err
			}

			if err := s.UpdateGameHeat(ctx, cfg, game); err != nil {
				s.logger.Error().Err(err).Int64("game_id", game.ID).Msg("heat recompute failed for game")
				observability.HeatGamesSkipped.Inc()
				result.Skipped++

				continue
			}

			observability.HeatGamesUpdated.Inc()
			result.Updated++
		}
	}

	s.logger.Info().
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Dur("took", time.Since(start)).
		Msg("heat recompute finished")

	return result, nil
}

func (s *Service) pace(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("heat recompute pacing: %w", err)
	}

	return nil
}

// RecomputeAllLocked runs RecomputeAll under the batch advisory lock,
// returning immediately when another instance holds it.
func (s *Service) RecomputeAllLocked(ctx context.Context) (BatchResult, error) {
	acquired, err := s.store.TryAcquireAdvisoryLock(ctx, db.HeatRecomputeLockID)
	if err != nil {
		return BatchResult{}, err
	}

	if !acquired {
		s.logger.Info().Msg("heat recompute already running elsewhere, skipping")

		return BatchResult{}, nil
	}

	defer func() {
		if err := s.store.ReleaseAdvisoryLock(ctx, db.HeatRecomputeLockID); err != nil {
			s.logger.Error().Err(err).Msg("release heat recompute lock")
		}
	}()

	return s.RecomputeAll(ctx)
}
