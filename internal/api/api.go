// Package api serves the JSON surface of the recommendation engine:
// per-user recommendations, hot/new game lists, and the admin endpoints
// for tuning coefficients and forcing a heat recompute.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/playradar/playradar/internal/heat"
	"github.com/playradar/playradar/internal/recommend"
	db "github.com/playradar/playradar/internal/storage"
)

// Recommender is the slice of the recommendation service the API uses.
type Recommender interface {
	GetRecommendations(ctx context.Context, userID string, topK int, forceRefresh bool) ([]db.Recommendation, error)
	InvalidateUserRecommendations(ctx context.Context, userID string) error
	UserInterests(ctx context.Context, userID string) (map[int64]float64, error)
	HotGames(ctx context.Context, category string, topK int) ([]db.Game, error)
	NewGames(ctx context.Context, category string, topK int) ([]db.Game, error)
}

// HeatRecomputer triggers heat recomputes, catalog-wide or per game.
type HeatRecomputer interface {
	RecomputeAllLocked(ctx context.Context) (heat.BatchResult, error)
	RecomputeGame(ctx context.Context, gameID int64) error
}

// ConfigStore reads and patches the algorithm coefficients.
type ConfigStore interface {
	GetAlgoConfig(ctx context.Context) (*db.AlgoConfig, error)
	UpdateAlgoConfig(ctx context.Context, patch *db.AlgoConfigPatch) (*db.AlgoConfig, error)
}

type Handler struct {
	recommender Recommender
	heat        HeatRecomputer
	configs     ConfigStore
	logger      *zerolog.Logger
}

func NewHandler(recommender Recommender, heatSvc HeatRecomputer, configs ConfigStore, logger *zerolog.Logger) *Handler {
	return &Handler{
		recommender: recommender,
		heat:        heatSvc,
		configs:     configs,
		logger:      logger,
	}
}

// Routes mounts every endpoint on a fresh mux rooted at /api/.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/recommendations", h.getRecommendations)
	mux.HandleFunc("DELETE /api/recommendations", h.deleteRecommendations)
	mux.HandleFunc("GET /api/games/hot", h.getHotGames)
	mux.HandleFunc("GET /api/games/new", h.getNewGames)
	mux.HandleFunc("GET /api/admin/interests", h.getInterests)
	mux.HandleFunc("GET /api/admin/config", h.getConfig)
	mux.HandleFunc("PATCH /api/admin/config", h.patchConfig)
	mux.HandleFunc("POST /api/admin/heat/recompute", h.recomputeHeat)

	return mux
}

type recommendationItem struct {
	GameID      int64    `json:"game_id"`
	GameName    string   `json:"game_name"`
	Score       float64  `json:"score"`
	ReasonType  string   `json:"reason_type"`
	MatchedTags []string `json:"matched_tags"`
}

type recommendationsResponse struct {
	UserID string               `json:"user_id"`
	Items  []recommendationItem `json:"items"`
}

func (h *Handler) getRecommendations(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if _, err := uuid.Parse(userID); err != nil {
		h.writeError(w, http.StatusBadRequest, "user_id must be a valid uuid")

		return
	}

	topK, err := parseTopK(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())

		return
	}

	forceRefresh := r.URL.Query().Get("refresh") == "true"

	recs, err := h.recommender.GetRecommendations(r.Context(), userID, topK, forceRefresh)
	if err != nil {
		if errors.Is(err, recommend.ErrInvalidTopK) {
			h.writeError(w, http.StatusBadRequest, err.Error())

			return
		}

		h.logger.Error().Err(err).Str("user_id", userID).Msg("get recommendations")
		h.writeError(w, http.StatusInternalServerError, "internal error")

		return
	}

	items := make([]recommendationItem, 0, len(recs))
	for _, rec := range recs {
		items = append(items, recommendationItem{
			GameID:      rec.GameID,
			GameName:    rec.GameName,
			Score:       rec.Score,
			ReasonType:  rec.Reason.Type,
			MatchedTags: rec.Reason.MatchedTags,
		})
	}

	h.writeJSON(w, http.StatusOK, recommendationsResponse{UserID: userID, Items: items})
}

// deleteRecommendations drops the user's derived data. The collection
// service calls this on collect/uncollect so the next read recomputes from
// fresh signals.
func (h *Handler) deleteRecommendations(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if _, err := uuid.Parse(userID); err != nil {
		h.writeError(w, http.StatusBadRequest, "user_id must be a valid uuid")

		return
	}

	if err := h.recommender.InvalidateUserRecommendations(r.Context(), userID); err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("invalidate recommendations")
		h.writeError(w, http.StatusInternalServerError, "internal error")

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type gameItem struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	ReleaseDate string  `json:"release_date"`
	HeatTotal   float64 `json:"heat_total"`
}

type gamesResponse struct {
	Items []gameItem `json:"items"`
}

func (h *Handler) getHotGames(w http.ResponseWriter, r *http.Request) {
	h.gameList(w, r, h.recommender.HotGames)
}

func (h *Handler) getNewGames(w http.ResponseWriter, r *http.Request) {
	h.gameList(w, r, h.recommender.NewGames)
}

func (h *Handler) gameList(w http.ResponseWriter, r *http.Request, list func(context.Context, string, int) ([]db.Game, error)) {
	topK, err := parseTopK(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())

		return
	}

	games, err := list(r.Context(), r.URL.Query().Get("category"), topK)
	if err != nil {
		if errors.Is(err, recommend.ErrInvalidTopK) {
			h.writeError(w, http.StatusBadRequest, err.Error())

			return
		}

		h.logger.Error().Err(err).Msg("list games")
		h.writeError(w, http.StatusInternalServerError, "internal error")

		return
	}

	items := make([]gameItem, 0, len(games))
	for _, g := range games {
		items = append(items, gameItem{
			ID:          g.ID,
			Name:        g.Name,
			Category:    g.Category,
			ReleaseDate: g.ReleaseDate.Format(time.DateOnly),
			HeatTotal:   g.HeatTotal,
		})
	}

	h.writeJSON(w, http.StatusOK, gamesResponse{Items: items})
}

type interestsResponse struct {
	UserID  string            `json:"user_id"`
	Weights map[int64]float64 `json:"weights"`
}

// getInterests exposes the persisted interest vector for operator
// inspection of what the ranker saw at last rebuild.
func (h *Handler) getInterests(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if _, err := uuid.Parse(userID); err != nil {
		h.writeError(w, http.StatusBadRequest, "user_id must be a valid uuid")

		return
	}

	weights, err := h.recommender.UserInterests(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("get interests")
		h.writeError(w, http.StatusInternalServerError, "internal error")

		return
	}

	h.writeJSON(w, http.StatusOK, interestsResponse{UserID: userID, Weights: weights})
}

type configResponse struct {
	Alpha          float64   `json:"alpha"`
	Beta           float64   `json:"beta"`
	DecayLambda    float64   `json:"decay_lambda"`
	WeightDownload float64   `json:"weight_download"`
	WeightFollow   float64   `json:"weight_follow"`
	WeightReview   float64   `json:"weight_review"`
	WeightLike     float64   `json:"weight_like"`
	WeightComment  float64   `json:"weight_comment"`
	TopK           int       `json:"top_k"`
	RefreshHours   int       `json:"refresh_hours"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toConfigResponse(cfg *db.AlgoConfig) configResponse {
	return configResponse{
		Alpha:          cfg.Alpha,
		Beta:           cfg.Beta,
		DecayLambda:    cfg.DecayLambda,
		WeightDownload: cfg.WeightDownload,
		WeightFollow:   cfg.WeightFollow,
		WeightReview:   cfg.WeightReview,
		WeightLike:     cfg.WeightLike,
		WeightComment:  cfg.WeightComment,
		TopK:           cfg.TopK,
		RefreshHours:   cfg.RefreshHours,
		UpdatedAt:      cfg.UpdatedAt,
	}
}

func (h *Handler) getConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.configs.GetAlgoConfig(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("get algo config")
		h.writeError(w, http.StatusInternalServerError, "internal error")

		return
	}

	h.writeJSON(w, http.StatusOK, toConfigResponse(cfg))
}

func (h *Handler) patchConfig(w http.ResponseWriter, r *http.Request) {
	var patch db.AlgoConfigPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.writeError(w, http.StatusBadRequest, "malformed json body")

		return
	}

	cfg, err := h.configs.UpdateAlgoConfig(r.Context(), &patch)
	if err != nil {
		if errors.Is(err, db.ErrInvalidAlgoConfig) {
			h.writeError(w, http.StatusBadRequest, err.Error())

			return
		}

		h.logger.Error().Err(err).Msg("update algo config")
		h.writeError(w, http.StatusInternalServerError, "internal error")

		return
	}

	h.writeJSON(w, http.StatusOK, toConfigResponse(cfg))
}

type recomputeResponse struct {
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// recomputeHeat recomputes the whole catalog, or a single game when
// game_id is given.
func (h *Handler) recomputeHeat(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("game_id"); raw != "" {
		gameID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "game_id must be an integer")

			return
		}

		if err := h.heat.RecomputeGame(r.Context(), gameID); err != nil {
			if errors.Is(err, db.ErrGameNotFound) {
				h.writeError(w, http.StatusNotFound, "game not found")

				return
			}

			h.logger.Error().Err(err).Int64("game_id", gameID).Msg("game heat recompute")
			h.writeError(w, http.StatusInternalServerError, "internal error")

			return
		}

		h.writeJSON(w, http.StatusOK, recomputeResponse{Updated: 1})

		return
	}

	result, err := h.heat.RecomputeAllLocked(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("manual heat recompute")
		h.writeError(w, http.StatusInternalServerError, "internal error")

		return
	}

	h.writeJSON(w, http.StatusOK, recomputeResponse{Updated: result.Updated, Skipped: result.Skipped})
}

// parseTopK reads the top_k parameter. An absent param means the
// configured default; an explicit zero or negative value is a validation
// failure, never silently widened to the default.
func parseTopK(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("top_k")
	if raw == "" {
		return 0, nil
	}

	topK, err := strconv.Atoi(raw)
	if err != nil || topK <= 0 {
		return 0, errors.New("top_k must be a positive integer")
	}

	return topK, nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error().Err(err).Msg("encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Error: msg})
}
