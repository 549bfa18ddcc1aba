package db

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidAlgoConfig wraps every coefficient validation failure so
// callers can tell a bad patch from a storage error.
var ErrInvalidAlgoConfig = errors.New("invalid algo config")

// AlgoConfig holds the tunable scoring coefficients. Exactly one row lives
// in algo_config; it is created lazily with defaults on first read and
// mutated only through UpdateAlgoConfig.
type AlgoConfig struct {
	Alpha          float64
	Beta           float64
	DecayLambda    float64
	WeightDownload float64
	WeightFollow   float64
	WeightReview   float64
	WeightLike     float64
	WeightComment  float64
	TopK           int
	RefreshHours   int
	UpdatedAt      time.Time
}

// Validate rejects coefficient sets no calculator can work with. Alpha and
// beta are expected to sum near 1 but that is advisory, not enforced.
func (c *AlgoConfig) Validate() error {
	for name, w := range map[string]float64{
		"alpha":           c.Alpha,
		"beta":            c.Beta,
		"weight_download": c.WeightDownload,
		"weight_follow":   c.WeightFollow,
		"weight_review":   c.WeightReview,
		"weight_like":     c.WeightLike,
		"weight_comment":  c.WeightComment,
	} {
		if w < 0 {
			return fmt.Errorf("%w: %s must be non-negative, got %g", ErrInvalidAlgoConfig, name, w)
		}
	}

	if c.DecayLambda < 0 {
		return fmt.Errorf("%w: decay_lambda must be non-negative, got %g", ErrInvalidAlgoConfig, c.DecayLambda)
	}

	if c.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidAlgoConfig, c.TopK)
	}

	if c.RefreshHours <= 0 {
		return fmt.Errorf("%w: refresh_hours must be positive, got %d", ErrInvalidAlgoConfig, c.RefreshHours)
	}

	return nil
}

// AlgoConfigPatch is a partial update; nil fields keep their current value.
type AlgoConfigPatch struct {
	Alpha          *float64 `json:"alpha,omitempty"`
	Beta           *float64 `json:"beta,omitempty"`
	DecayLambda    *float64 `json:"decay_lambda,omitempty"`
	WeightDownload *float64 `json:"weight_download,omitempty"`
	WeightFollow   *float64 `json:"weight_follow,omitempty"`
	WeightReview   *float64 `json:"weight_review,omitempty"`
	WeightLike     *float64 `json:"weight_like,omitempty"`
	WeightComment  *float64 `json:"weight_comment,omitempty"`
	TopK           *int     `json:"top_k,omitempty"`
	RefreshHours   *int     `json:"refresh_hours,omitempty"`
}

func (p *AlgoConfigPatch) apply(cfg *AlgoConfig) {
	if p.Alpha != nil {
		cfg.Alpha = *p.Alpha
	}

	if p.Beta != nil {
		cfg.Beta = *p.Beta
	}

	if p.DecayLambda != nil {
		cfg.DecayLambda = *p.DecayLambda
	}

	if p.WeightDownload != nil {
		cfg.WeightDownload = *p.WeightDownload
	}

	if p.WeightFollow != nil {
		cfg.WeightFollow = *p.WeightFollow
	}

	if p.WeightReview != nil {
		cfg.WeightReview = *p.WeightReview
	}

	if p.WeightLike != nil {
		cfg.WeightLike = *p.WeightLike
	}

	if p.WeightComment != nil {
		cfg.WeightComment = *p.WeightComment
	}

	if p.TopK != nil {
		cfg.TopK = *p.TopK
	}

	if p.RefreshHours != nil {
		cfg.RefreshHours = *p.RefreshHours
	}
}

const algoConfigColumns = `alpha, beta, decay_lambda,
	       weight_download, weight_follow, weight_review,
	       weight_like, weight_comment,
	       top_k, refresh_hours, updated_at`

// GetAlgoConfig returns the singleton config, inserting the defaults when
// the row does not exist yet.
func (db *DB) GetAlgoConfig(ctx context.Context) (*AlgoConfig, error) {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO algo_config (id) VALUES (1)
		ON CONFLICT (id) DO NOTHING
	`)
	if err != nil {
		return nil, fmt.Errorf("ensure algo config: %w", err)
	}

	row := db.Pool.QueryRow(ctx, `
		SELECT `+algoConfigColumns+`
		FROM algo_config
		WHERE id = 1
	`)

	cfg := &AlgoConfig{}
	if err := row.Scan(
		&cfg.Alpha, &cfg.Beta, &cfg.DecayLambda,
		&cfg.WeightDownload, &cfg.WeightFollow, &cfg.WeightReview,
		&cfg.WeightLike, &cfg.WeightComment,
		&cfg.TopK, &cfg.RefreshHours, &cfg.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("get algo config: %w", err)
	}

	return cfg, nil
}

// UpdateAlgoConfig applies a partial update to the singleton config and
// returns the resulting row. The merged config is validated before write.
func (db *DB) UpdateAlgoConfig(ctx context.Context, patch *AlgoConfigPatch) (*AlgoConfig, error) {
	cfg, err := db.GetAlgoConfig(ctx)
	if err != nil {
		return nil, err
	}

	patch.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	row := db.Pool.QueryRow(ctx, `
		UPDATE algo_config SET
			alpha = $1,
			beta = $2,
			decay_lambda = $3,
			weight_download = $4,
			weight_follow = $5,
			weight_review = $6,
			weight_like = $7,
			weight_comment = $8,
			top_k = $9,
			refresh_hours = $10,
			updated_at = now()
		WHERE id = 1
		RETURNING `+algoConfigColumns+`
	`, cfg.Alpha, cfg.Beta, cfg.DecayLambda,
		cfg.WeightDownload, cfg.WeightFollow, cfg.WeightReview,
		cfg.WeightLike, cfg.WeightComment,
		cfg.TopK, cfg.RefreshHours)

	updated := &AlgoConfig{}
	if err := row.Scan(
		&updated.Alpha, &updated.Beta, &updated.DecayLambda,
		&updated.WeightDownload, &updated.WeightFollow, &updated.WeightReview,
		&updated.WeightLike, &updated.WeightComment,
		&updated.TopK, &updated.RefreshHours, &updated.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("update algo config: %w", err)
	}

	return updated, nil
}
