package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/playradar/playradar/internal/heat"
	db "github.com/playradar/playradar/internal/storage"
)

const testUserID = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"

type fakeRecommender struct {
	lastTopK    int
	lastRefresh bool
	invalidated []string
}

func (f *fakeRecommender) GetRecommendations(_ context.Context, userID string, topK int, forceRefresh bool) ([]db.Recommendation, error) {
	f.lastTopK = topK
	f.lastRefresh = forceRefresh

	return []db.Recommendation{{
		UserID:   userID,
		GameID:   42,
		GameName: "Hollow Depths",
		Score:    0.92,
		Reason:   db.Reason{Type: db.ReasonTagSimilarity, MatchedTags: []string{"metroidvania"}},
	}}, nil
}

func (f *fakeRecommender) InvalidateUserRecommendations(_ context.Context, userID string) error {
	f.invalidated = append(f.invalidated, userID)

	return nil
}

func (f *fakeRecommender) UserInterests(context.Context, string) (map[int64]float64, error) {
	return map[int64]float64{7: 1.0, 9: 0.4}, nil
}

func (f *fakeRecommender) HotGames(context.Context, string, int) ([]db.Game, error) {
	return []db.Game{{ID: 1, Name: "hot", HeatTotal: 99}}, nil
}

func (f *fakeRecommender) NewGames(context.Context, string, int) ([]db.Game, error) {
	return []db.Game{{ID: 2, Name: "fresh"}}, nil
}

type fakeHeat struct {
	result    heat.BatchResult
	calls     int
	gameCalls []int64
}

func (f *fakeHeat) RecomputeAllLocked(context.Context) (heat.BatchResult, error) {
	f.calls++

	return f.result, nil
}

func (f *fakeHeat) RecomputeGame(_ context.Context, gameID int64) error {
	if gameID == 404 {
		return db.ErrGameNotFound
	}

	f.gameCalls = append(f.gameCalls, gameID)

	return nil
}

type fakeConfigStore struct {
	cfg       db.AlgoConfig
	lastPatch *db.AlgoConfigPatch
}

func (f *fakeConfigStore) GetAlgoConfig(context.Context) (*db.AlgoConfig, error) {
	cfg := f.cfg

	return &cfg, nil
}

func (f *fakeConfigStore) UpdateAlgoConfig(_ context.Context, patch *db.AlgoConfigPatch) (*db.AlgoConfig, error) {
	f.lastPatch = patch

	cfg := f.cfg
	if patch.Alpha != nil {
		cfg.Alpha = *patch.Alpha
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	f.cfg = cfg

	return &cfg, nil
}

func newTestHandler() (*Handler, *fakeRecommender, *fakeHeat, *fakeConfigStore) {
	rec := &fakeRecommender{}
	heatSvc := &fakeHeat{result: heat.BatchResult{Updated: 7, Skipped: 1}}
	configs := &fakeConfigStore{cfg: db.AlgoConfig{
		Alpha: 0.7, Beta: 0.3, DecayLambda: 0.05,
		WeightDownload: 0.5, WeightFollow: 0.3, WeightReview: 0.2,
		WeightLike: 0.6, WeightComment: 0.4,
		TopK: 10, RefreshHours: 24,
	}}
	logger := zerolog.Nop()

	return NewHandler(rec, heatSvc, configs, &logger), rec, heatSvc, configs
}

func TestGetRecommendations(t *testing.T) {
	h, rec, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/recommendations?user_id="+testUserID+"&top_k=5&refresh=true", nil)
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	if rec.lastTopK != 5 || !rec.lastRefresh {
		t.Fatalf("service got topK=%d refresh=%v", rec.lastTopK, rec.lastRefresh)
	}

	var resp recommendationsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}

	if resp.UserID != testUserID || len(resp.Items) != 1 {
		t.Fatalf("response = %+v", resp)
	}

	item := resp.Items[0]
	if item.GameID != 42 || item.ReasonType != db.ReasonTagSimilarity || len(item.MatchedTags) != 1 {
		t.Fatalf("item = %+v", item)
	}
}

func TestGetRecommendations_RejectsBadUserID(t *testing.T) {
	h, _, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/recommendations?user_id=not-a-uuid", nil)
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestGetRecommendations_RejectsNonPositiveTopK(t *testing.T) {
	h, rec, _, _ := newTestHandler()

	// An explicit zero is a validation failure, not a request for the
	// configured default.
	for _, topK := range []string{"-3", "0"} {
		req := httptest.NewRequest(http.MethodGet, "/api/recommendations?user_id="+testUserID+"&top_k="+topK, nil)
		rr := httptest.NewRecorder()
		h.Routes().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("top_k=%s status = %d, want 400", topK, rr.Code)
		}
	}

	if rec.lastTopK != 0 || rec.lastRefresh {
		t.Fatal("invalid top_k reached the service")
	}
}

func TestGameLists_RejectZeroTopK(t *testing.T) {
	h, _, _, _ := newTestHandler()

	for _, path := range []string{"/api/games/hot?top_k=0", "/api/games/new?top_k=0"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		h.Routes().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s status = %d, want 400", path, rr.Code)
		}
	}
}

func TestDeleteRecommendations(t *testing.T) {
	h, rec, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodDelete, "/api/recommendations?user_id="+testUserID, nil)
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rr.Code)
	}

	if len(rec.invalidated) != 1 || rec.invalidated[0] != testUserID {
		t.Fatalf("invalidated = %v", rec.invalidated)
	}
}

func TestHotAndNewGames(t *testing.T) {
	h, _, _, _ := newTestHandler()

	for _, path := range []string{"/api/games/hot", "/api/games/new?category=rpg"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		h.Routes().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rr.Code)
		}

		var resp gamesResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}

		if len(resp.Items) != 1 {
			t.Fatalf("%s items = %+v", path, resp.Items)
		}
	}
}

func TestGetInterests(t *testing.T) {
	h, _, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/admin/interests?user_id="+testUserID, nil)
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	var resp interestsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}

	if len(resp.Weights) != 2 || resp.Weights[7] != 1.0 {
		t.Fatalf("weights = %v", resp.Weights)
	}
}

func TestPatchConfig(t *testing.T) {
	h, _, _, configs := newTestHandler()

	req := httptest.NewRequest(http.MethodPatch, "/api/admin/config", strings.NewReader(`{"alpha": 0.8}`))
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	if configs.lastPatch == nil || configs.lastPatch.Alpha == nil || *configs.lastPatch.Alpha != 0.8 {
		t.Fatalf("patch = %+v", configs.lastPatch)
	}

	var resp configResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}

	if resp.Alpha != 0.8 || resp.Beta != 0.3 {
		t.Fatalf("response = %+v", resp)
	}
}

func TestPatchConfig_RejectsInvalidCoefficients(t *testing.T) {
	h, _, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodPatch, "/api/admin/config", strings.NewReader(`{"alpha": -1}`))
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
}

func TestRecomputeHeat(t *testing.T) {
	h, _, heatSvc, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/admin/heat/recompute", nil)
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	if heatSvc.calls != 1 {
		t.Fatalf("recompute calls = %d", heatSvc.calls)
	}

	var resp recomputeResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}

	if resp.Updated != 7 || resp.Skipped != 1 {
		t.Fatalf("response = %+v", resp)
	}
}

func TestRecomputeHeat_SingleGame(t *testing.T) {
	h, _, heatSvc, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/admin/heat/recompute?game_id=42", nil)
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	if heatSvc.calls != 0 || len(heatSvc.gameCalls) != 1 || heatSvc.gameCalls[0] != 42 {
		t.Fatalf("batch calls = %d, game calls = %v", heatSvc.calls, heatSvc.gameCalls)
	}
}

func TestRecomputeHeat_UnknownGame(t *testing.T) {
	h, _, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/admin/heat/recompute?game_id=404", nil)
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
}
