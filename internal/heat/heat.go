// Package heat computes game popularity scores.
//
// Total heat blends a static component from slow catalog counters with a
// dynamic component from recent community engagement:
//
//	H_static  = w_d*downloads + w_f*follows + w_r*reviews
//	H_dynamic = sum over posts of (w_l*likes + w_c*comments) * exp(-lambda*age_hours)
//	H_total   = alpha*H_static + beta*H_dynamic
//
// The calculators are pure functions of their inputs; persistence and batch
// orchestration live in Service.
package heat

import (
	"math"
	"time"

	db "github.com/playradar/playradar/internal/storage"
)

// StaticHeat computes the counter-based score. Monotonically non-decreasing
// in every counter as long as the weights are non-negative.
func StaticHeat(cfg *db.AlgoConfig, game *db.Game) float64 {
	return cfg.WeightDownload*float64(game.DownloadCount) +
		cfg.WeightFollow*float64(game.FollowCount) +
		cfg.WeightReview*float64(game.ReviewCount)
}

// DynamicHeat computes the engagement score with exponential time decay.
// The caller captures now once per pass so decay ordering stays consistent
// across posts. Zero posts yield 0.
func DynamicHeat(cfg *db.AlgoConfig, posts []db.Post, now time.Time) float64 {
	var total float64

	for _, post := range posts {
		ageHours := now.Sub(post.CreatedAt).Hours()
		if ageHours < 0 {
			ageHours = 0
		}

		decay := math.Exp(-cfg.DecayLambda * ageHours)
		postScore := cfg.WeightLike*float64(post.LikeCount) + cfg.WeightComment*float64(post.CommentCount)
		total += postScore * decay
	}

	return total
}

// TotalHeat blends the two components.
func TotalHeat(cfg *db.AlgoConfig, static, dynamic float64) float64 {
	return cfg.Alpha*static + cfg.Beta*dynamic
}
