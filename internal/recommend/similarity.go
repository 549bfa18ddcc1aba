package recommend

import (
	"math"
	"sort"

	db "github.com/playradar/playradar/internal/storage"
)

// Scored is one ranked candidate with its similarity score and the tag
// names that produced the match.
type Scored struct {
	GameID      int64
	GameName    string
	Score       float64
	MatchedTags []string
}

// Similarity computes the cosine-style overlap between a user's weighted
// tag vector and a game's binary tag set:
//
//	dot / (||user|| * sqrt(|tags|))
//
// Either side empty yields 0.
func Similarity(userVector map[int64]float64, tagIDs []int64) float64 {
	if len(userVector) == 0 || len(tagIDs) == 0 {
		return 0
	}

	var dot float64
	for _, tagID := range tagIDs {
		dot += userVector[tagID]
	}

	var sumSquares float64
	for _, w := range userVector {
		sumSquares += w * w
	}

	userNorm := math.Sqrt(sumSquares)
	itemNorm := math.Sqrt(float64(len(tagIDs)))

	if userNorm == 0 || itemNorm == 0 {
		return 0
	}

	return dot / (userNorm * itemNorm)
}

// Rank scores every candidate against the user vector, discards
// non-positive scores, and returns at most topK results sorted by
// descending score. Ties break on ascending game id so reruns over
// identical inputs are reproducible.
func Rank(userVector map[int64]float64, candidates []db.Candidate, topK int) []Scored {
	scored := make([]Scored, 0, len(candidates))

	for _, c := range candidates {
		score := Similarity(userVector, c.TagIDs)
		if score <= 0 {
			continue
		}

		scored = append(scored, Scored{
			GameID:      c.GameID,
			GameName:    c.GameName,
			Score:       score,
			MatchedTags: matchedTags(userVector, c),
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}

		return scored[i].GameID < scored[j].GameID
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}

	return scored
}

func matchedTags(userVector map[int64]float64, c db.Candidate) []string {
	var names []string

	for i, tagID := range c.TagIDs {
		if _, ok := userVector[tagID]; ok && i < len(c.TagNames) {
			names = append(names, c.TagNames[i])
		}
	}

	return names
}
