// Package recommend builds per-user interest vectors from implicit
// feedback and ranks catalog games against them.
//
// Three signal tiers feed the vector, strongest first: games the user
// collected, games whose guides the user collected, and games attached to
// posts the user liked. A tag reached through several channels accumulates.
// Weights are normalized against the user's own maximum, so the strongest
// tag is always exactly 1.0.
package recommend

// Per-occurrence weight contributions of the three signal tiers.
const (
	weightCollected      = 3.0
	weightGuideCollected = 2.0
	weightLikedPost      = 1.0
)

// BuildInterestVector accumulates tag weights from the three signal tiers
// and max-normalizes them. Empty signals produce an empty vector, never an
// error.
func BuildInterestVector(collected, guideCollected, likedPost []int64) map[int64]float64 {
	weights := make(map[int64]float64)

	for _, tagID := range collected {
		weights[tagID] += weightCollected
	}

	for _, tagID := range guideCollected {
		weights[tagID] += weightGuideCollected
	}

	for _, tagID := range likedPost {
		weights[tagID] += weightLikedPost
	}

	normalize(weights)

	return weights
}

func normalize(weights map[int64]float64) {
	var max float64
	for _, w := range weights {
		if w > max {
			max = w
		}
	}

	if max <= 0 {
		return
	}

	for tagID, w := range weights {
		weights[tagID] = w / max
	}
}
