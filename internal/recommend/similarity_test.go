package recommend

import (
	"math"
	"testing"

	db "github.com/playradar/playradar/internal/storage"
)

func TestSimilarity_PartialOverlap(t *testing.T) {
	// User vector {rpg:1.0, indie:1.0}, norm sqrt(2). Candidate carries
	// only rpg: dot 1.0, item norm 1.0. Score 1/sqrt(2) ≈ 0.7071.
	vector := map[int64]float64{1: 1.0, 2: 1.0}

	got := Similarity(vector, []int64{1})
	want := 1.0 / math.Sqrt2

	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("similarity = %v, want %v", got, want)
	}
}

func TestSimilarity_ExactMatchIsOne(t *testing.T) {
	vector := map[int64]float64{1: 1.0, 2: 1.0}

	got := Similarity(vector, []int64{1, 2})

	if math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("similarity = %v, want 1.0", got)
	}
}

func TestSimilarity_NoOverlapIsZero(t *testing.T) {
	vector := map[int64]float64{1: 1.0}

	if got := Similarity(vector, []int64{9}); got != 0 {
		t.Fatalf("similarity = %v, want 0", got)
	}
}

func TestSimilarity_EmptySides(t *testing.T) {
	if got := Similarity(nil, []int64{1}); got != 0 {
		t.Fatalf("empty vector similarity = %v, want 0", got)
	}

	if got := Similarity(map[int64]float64{1: 1.0}, nil); got != 0 {
		t.Fatalf("untagged game similarity = %v, want 0", got)
	}
}

func TestRank_OrderAndTruncation(t *testing.T) {
	vector := map[int64]float64{1: 1.0, 2: 0.5}

	candidates := []db.Candidate{
		{GameID: 10, GameName: "only weak tag", TagIDs: []int64{2}, TagNames: []string{"indie"}},
		{GameID: 11, GameName: "strong tag", TagIDs: []int64{1}, TagNames: []string{"rpg"}},
		{GameID: 12, GameName: "no overlap", TagIDs: []int64{9}, TagNames: []string{"sports"}},
		{GameID: 13, GameName: "both tags", TagIDs: []int64{1, 2}, TagNames: []string{"rpg", "indie"}},
	}

	ranked := Rank(vector, candidates, 2)

	if len(ranked) != 2 {
		t.Fatalf("got %d results, want 2", len(ranked))
	}

	// both-tags game: dot 1.5, norms sqrt(1.25)*sqrt(2) → ≈0.9487
	// strong-tag game: dot 1.0, norms sqrt(1.25)*1 → ≈0.8944
	if ranked[0].GameID != 13 || ranked[1].GameID != 11 {
		t.Fatalf("order = [%d, %d], want [13, 11]", ranked[0].GameID, ranked[1].GameID)
	}

	if ranked[0].Score <= ranked[1].Score {
		t.Fatalf("scores not descending: %v then %v", ranked[0].Score, ranked[1].Score)
	}
}

func TestRank_DiscardsNonPositive(t *testing.T) {
	vector := map[int64]float64{1: 1.0}

	ranked := Rank(vector, []db.Candidate{
		{GameID: 10, TagIDs: []int64{9}},
		{GameID: 11, TagIDs: nil},
	}, 10)

	if len(ranked) != 0 {
		t.Fatalf("got %d results, want 0", len(ranked))
	}
}

func TestRank_TieBreaksOnGameID(t *testing.T) {
	vector := map[int64]float64{1: 1.0}

	// Identical tag sets score identically; lower id must come first.
	ranked := Rank(vector, []db.Candidate{
		{GameID: 20, TagIDs: []int64{1}},
		{GameID: 5, TagIDs: []int64{1}},
		{GameID: 12, TagIDs: []int64{1}},
	}, 10)

	ids := []int64{ranked[0].GameID, ranked[1].GameID, ranked[2].GameID}
	want := []int64{5, 12, 20}

	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("tie order = %v, want %v", ids, want)
		}
	}
}

func TestRank_MatchedTagNames(t *testing.T) {
	vector := map[int64]float64{1: 1.0, 3: 0.2}

	ranked := Rank(vector, []db.Candidate{
		{GameID: 10, TagIDs: []int64{1, 2, 3}, TagNames: []string{"rpg", "sports", "coop"}},
	}, 1)

	if len(ranked) != 1 {
		t.Fatalf("got %d results, want 1", len(ranked))
	}

	tags := ranked[0].MatchedTags
	if len(tags) != 2 || tags[0] != "rpg" || tags[1] != "coop" {
		t.Fatalf("matched tags = %v, want [rpg coop]", tags)
	}
}
