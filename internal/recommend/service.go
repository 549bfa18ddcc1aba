package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/playradar/playradar/internal/cache"
	"github.com/playradar/playradar/internal/platform/observability"
	db "github.com/playradar/playradar/internal/storage"
)

// ErrInvalidTopK is returned when a caller asks for a negative list size.
var ErrInvalidTopK = errors.New("top_k must not be negative")

// Store is the storage surface the recommendation engine needs.
type Store interface {
	GetAlgoConfig(ctx context.Context) (*db.AlgoConfig, error)

	CollectedGameTagIDs(ctx context.Context, userID string) ([]int64, error)
	GuideCollectedGameTagIDs(ctx context.Context, userID string) ([]int64, error)
	LikedPostGameTagIDs(ctx context.Context, userID string) ([]int64, error)

	ReplaceUserInterests(ctx context.Context, userID string, weights map[int64]float64) error
	UserInterestVector(ctx context.Context, userID string) (map[int64]float64, error)

	CandidatesForUser(ctx context.Context, userID string) ([]db.Candidate, error)
	ReplaceRecommendations(ctx context.Context, userID string, recs []db.Recommendation) error
	RecommendationsForUser(ctx context.Context, userID string, limit int) ([]db.Recommendation, error)
	DeleteUserDerived(ctx context.Context, userID string) error

	ActiveUserIDs(ctx context.Context) ([]string, error)
	HotGames(ctx context.Context, category string, limit int) ([]db.Game, error)
	NewGames(ctx context.Context, category string, limit int) ([]db.Game, error)

	TryAcquireAdvisoryLock(ctx context.Context, lockID int64) (bool, error)
	ReleaseAdvisoryLock(ctx context.Context, lockID int64) error
}

// Service builds interest vectors, generates ranked recommendations, and
// serves them through a short-TTL cache.
type Service struct {
	store   Store
	cache   cache.Cache
	logger  *zerolog.Logger
	recTTL  time.Duration
	listTTL time.Duration
}

// Options configures a recommendation Service.
type Options struct {
	// RecTTL bounds how long a user's cached recommendation list lives.
	RecTTL time.Duration

	// ListTTL bounds how long the hot/new list caches live.
	ListTTL time.Duration
}

func NewService(store Store, c cache.Cache, logger *zerolog.Logger, opts Options) *Service {
	if opts.RecTTL <= 0 {
		opts.RecTTL = 30 * time.Minute
	}

	if opts.ListTTL <= 0 {
		opts.ListTTL = time.Hour
	}

	return &Service{
		store:   store,
		cache:   c,
		logger:  logger,
		recTTL:  opts.RecTTL,
		listTTL: opts.ListTTL,
	}
}

// RebuildUserInterests derives the user's tag-interest vector from the
// three implicit-feedback tiers and replaces the persisted vector with it.
// Idempotent: unchanged signals rebuild to an identical vector.
func (s *Service) RebuildUserInterests(ctx context.Context, userID string) (map[int64]float64, error) {
	collected, err := s.store.CollectedGameTagIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("collected tags for user %s: %w", userID, err)
	}

	guide, err := s.store.GuideCollectedGameTagIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("guide tags for user %s: %w", userID, err)
	}

	liked, err := s.store.LikedPostGameTagIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("liked tags for user %s: %w", userID, err)
	}

	vector := BuildInterestVector(collected, guide, liked)

	if err := s.store.ReplaceUserInterests(ctx, userID, vector); err != nil {
		return nil, fmt.Errorf("replace interests for user %s: %w", userID, err)
	}

	observability.InterestRebuilds.Inc()
	observability.InterestVectorSize.Observe(float64(len(vector)))

	s.logger.Debug().Str("user_id", userID).Int("tags", len(vector)).Msg("interest vector rebuilt")

	return vector, nil
}

// GenerateRecommendations rebuilds the user's interests, ranks all
// non-collected games against them, and replaces the persisted
// recommendation set with the top results. topK 0 means the configured
// default.
func (s *Service) GenerateRecommendations(ctx context.Context, userID string, topK int) ([]db.Recommendation, error) {
	topK, err := s.resolveTopK(ctx, topK)
	if err != nil {
		return nil, err
	}

	vector, err := s.RebuildUserInterests(ctx, userID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.store.CandidatesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("candidates for user %s: %w", userID, err)
	}

	ranked := Rank(vector, candidates, topK)

	recs := make([]db.Recommendation, 0, len(ranked))
	for _, r := range ranked {
		recs = append(recs, db.Recommendation{
			UserID:   userID,
			GameID:   r.GameID,
			GameName: r.GameName,
			Score:    r.Score,
			Reason: db.Reason{
				Type:        db.ReasonTagSimilarity,
				MatchedTags: r.MatchedTags,
			},
		})
	}

	if err := s.store.ReplaceRecommendations(ctx, userID, recs); err != nil {
		return nil, fmt.Errorf("replace recommendations for user %s: %w", userID, err)
	}

	s.logger.Info().Str("user_id", userID).Int("count", len(recs)).Msg("recommendations generated")

	return recs, nil
}

type cachedRecommendations struct {
	Limit int                 `json:"limit"`
	Recs  []db.Recommendation `json:"recs"`
}

// GetRecommendations serves the user's ranked list: cache first, then
// persisted rows, regenerating when neither exists or forceRefresh is set.
// The cache is keyed by user id alone and holds the full generated list;
// reads truncate to the requested size, so invalidation never leaves a
// stale entry behind for an uncommon topK.
func (s *Service) GetRecommendations(ctx context.Context, userID string, topK int, forceRefresh bool) ([]db.Recommendation, error) {
	topK, err := s.resolveTopK(ctx, topK)
	if err != nil {
		return nil, err
	}

	key := recCacheKey(userID)

	if !forceRefresh {
		if recs, ok := s.cachedList(ctx, key, topK); ok {
			observability.RecommendationCacheHits.Inc()

			return recs, nil
		}

		observability.RecommendationCacheMisses.Inc()
	}

	genLimit := topK

	recs, err := s.store.RecommendationsForUser(ctx, userID, genLimit)
	if err != nil {
		return nil, fmt.Errorf("read recommendations for user %s: %w", userID, err)
	}

	if len(recs) == 0 || forceRefresh {
		if _, err := s.GenerateRecommendations(ctx, userID, genLimit); err != nil {
			return nil, err
		}

		recs, err = s.store.RecommendationsForUser(ctx, userID, genLimit)
		if err != nil {
			return nil, fmt.Errorf("reread recommendations for user %s: %w", userID, err)
		}
	}

	s.cacheList(ctx, key, genLimit, recs)

	if len(recs) > topK {
		recs = recs[:topK]
	}

	return recs, nil
}

// UserInterests returns the user's persisted tag-interest vector as last
// rebuilt, for operator inspection. It never triggers a rebuild.
func (s *Service) UserInterests(ctx context.Context, userID string) (map[int64]float64, error) {
	vector, err := s.store.UserInterestVector(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("interests for user %s: %w", userID, err)
	}

	return vector, nil
}

// InvalidateUserRecommendations discards the user's persisted
// recommendations, interest vector, and cache entry. Collection-toggle
// collaborators call this so the next read recomputes from fresh signals.
func (s *Service) InvalidateUserRecommendations(ctx context.Context, userID string) error {
	if err := s.store.DeleteUserDerived(ctx, userID); err != nil {
		return fmt.Errorf("invalidate user %s: %w", userID, err)
	}

	if err := s.cache.Delete(ctx, recCacheKey(userID)); err != nil {
		return fmt.Errorf("evict cache for user %s: %w", userID, err)
	}

	s.logger.Debug().Str("user_id", userID).Msg("recommendations invalidated")

	return nil
}

// GenerateForAll regenerates recommendations for every active user under
// the batch advisory lock. Per-user failures are logged and counted, never
// fatal to the batch.
func (s *Service) GenerateForAll(ctx context.Context) (succeeded, failed int, err error) {
	acquired, err := s.store.TryAcquireAdvisoryLock(ctx, db.RecommendationBatchLockID)
	if err != nil {
		return 0, 0, err
	}

	if !acquired {
		s.logger.Info().Msg("recommendation batch already running elsewhere, skipping")

		return 0, 0, nil
	}

	defer func() {
		if relErr := s.store.ReleaseAdvisoryLock(ctx, db.RecommendationBatchLockID); relErr != nil {
			s.logger.Error().Err(relErr).Msg("release recommendation batch lock")
		}
	}()

	userIDs, err := s.store.ActiveUserIDs(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list active users: %w", err)
	}

	for _, userID := range userIDs {
		if ctx.Err() != nil {
			return succeeded, failed, fmt.Errorf("recommendation batch interrupted: %w", ctx.Err())
		}

		if _, genErr := s.GenerateRecommendations(ctx, userID, 0); genErr != nil {
			s.logger.Error().Err(genErr).Str("user_id", userID).Msg("recommendation generation failed for user")
			observability.RecommendationsGenerated.WithLabelValues("error").Inc()
			failed++

			continue
		}

		observability.RecommendationsGenerated.WithLabelValues("ok").Inc()
		succeeded++
	}

	s.logger.Info().Int("succeeded", succeeded).Int("failed", failed).Msg("recommendation batch finished")

	return succeeded, failed, nil
}

// HotGames returns the heat-ordered list, cached per (category, k).
func (s *Service) HotGames(ctx context.Context, category string, topK int) ([]db.Game, error) {
	topK, err := s.resolveTopK(ctx, topK)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("games:hot:%s:%d", categoryKey(category), topK)

	if data, err := s.cache.Get(ctx, key); err == nil {
		var games []db.Game
		if jsonErr := json.Unmarshal(data, &games); jsonErr == nil {
			return games, nil
		}
	}

	games, err := s.store.HotGames(ctx, category, topK)
	if err != nil {
		return nil, fmt.Errorf("hot games: %w", err)
	}

	s.cacheJSON(ctx, key, games, s.listTTL)

	return games, nil
}

// NewGames returns the recency-ordered list, cached per (category, k).
func (s *Service) NewGames(ctx context.Context, category string, topK int) ([]db.Game, error) {
	topK, err := s.resolveTopK(ctx, topK)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("games:new:%s:%d", categoryKey(category), topK)

	if data, err := s.cache.Get(ctx, key); err == nil {
		var games []db.Game
		if jsonErr := json.Unmarshal(data, &games); jsonErr == nil {
			return games, nil
		}
	}

	games, err := s.store.NewGames(ctx, category, topK)
	if err != nil {
		return nil, fmt.Errorf("new games: %w", err)
	}

	s.cacheJSON(ctx, key, games, s.listTTL)

	return games, nil
}

// resolveTopK maps zero to the configured default. Zero is reserved for
// internal callers that mean "unset" (the batch pass, absent HTTP params);
// the HTTP layer rejects an explicit zero before it gets here.
func (s *Service) resolveTopK(ctx context.Context, topK int) (int, error) {
	if topK < 0 {
		return 0, ErrInvalidTopK
	}

	if topK > 0 {
		return topK, nil
	}

	cfg, err := s.store.GetAlgoConfig(ctx)
	if err != nil {
		return 0, fmt.Errorf("load algo config: %w", err)
	}

	return cfg.TopK, nil
}

func (s *Service) cachedList(ctx context.Context, key string, topK int) ([]db.Recommendation, bool) {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}

	var cached cachedRecommendations
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false
	}

	// A cached list generated for a smaller limit cannot serve a larger
	// request; fall through to the store.
	if topK > cached.Limit {
		return nil, false
	}

	recs := cached.Recs
	if len(recs) > topK {
		recs = recs[:topK]
	}

	return recs, true
}

func (s *Service) cacheList(ctx context.Context, key string, limit int, recs []db.Recommendation) {
	s.cacheJSON(ctx, key, cachedRecommendations{Limit: limit, Recs: recs}, s.recTTL)
}

func (s *Service) cacheJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("marshal cache value")

		return
	}

	if err := s.cache.Set(ctx, key, data, ttl); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("set cache value")
	}
}

func recCacheKey(userID string) string {
	return "rec:user:" + userID
}

func categoryKey(category string) string {
	if category == "" {
		return "all"
	}

	return category
}
