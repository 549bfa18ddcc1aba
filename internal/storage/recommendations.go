package db

import (
	"context"
	"fmt"
	"time"
)

// Reason is the structured justification stored with each recommendation.
type Reason struct {
	Type        string   `json:"type"`
	MatchedTags []string `json:"matched_tags"`
}

// ReasonTagSimilarity marks recommendations produced by the tag-overlap
// ranker, the only generator today.
const ReasonTagSimilarity = "tag_similarity"

// Recommendation is one persisted (user, game) recommendation.
type Recommendation struct {
	UserID      string
	GameID      int64
	GameName    string
	Score       float64
	Reason      Reason
	GeneratedAt time.Time
}

// ReplaceRecommendations swaps the user's recommendation set for the given
// one inside a single transaction, so the stored set always reflects
// exactly one generation pass.
func (db *DB) ReplaceRecommendations(ctx context.Context, userID string, recs []Recommendation) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin recommendations tx: %w", err)
	}

	defer func() {
		//nolint:errcheck // rollback after commit is a no-op
		_ = tx.Rollback(ctx)
	}()

	uid := toUUID(userID)

	if _, err := tx.Exec(ctx, `DELETE FROM recommendations WHERE user_id = $1`, uid); err != nil {
		return fmt.Errorf("delete recommendations: %w", err)
	}

	for _, rec := range recs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO recommendations (user_id, game_id, score, reason, generated_at)
			VALUES ($1, $2, $3, $4, now())
		`, uid, rec.GameID, rec.Score, rec.Reason); err != nil {
			return fmt.Errorf("insert recommendation: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit recommendations tx: %w", err)
	}

	return nil
}

// RecommendationsForUser returns the user's persisted recommendations,
// best score first, at most limit rows.
func (db *DB) RecommendationsForUser(ctx context.Context, userID string, limit int) ([]Recommendation, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT r.user_id, r.game_id, g.name, r.score, r.reason, r.generated_at
		FROM recommendations r
		JOIN games g ON g.id = r.game_id
		WHERE r.user_id = $1
		ORDER BY r.score DESC, r.game_id
		LIMIT $2
	`, toUUID(userID), limit)
	if err != nil {
		return nil, fmt.Errorf("recommendations for user: %w", err)
	}
	defer rows.Close()

	var recs []Recommendation

	for rows.Next() {
		var rec Recommendation
		if err := rows.Scan(&rec.UserID, &rec.GameID, &rec.GameName, &rec.Score, &rec.Reason, &rec.GeneratedAt); err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}

		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recommendation rows: %w", err)
	}

	return recs, nil
}

// DeleteUserDerived removes the user's recommendations and interest vector
// in one transaction. Called on collect/uncollect so the next read rebuilds
// from fresh signals.
func (db *DB) DeleteUserDerived(ctx context.Context, userID string) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin invalidate tx: %w", err)
	}

	defer func() {
		//nolint:errcheck // rollback after commit is a no-op
		_ = tx.Rollback(ctx)
	}()

	uid := toUUID(userID)

	if _, err := tx.Exec(ctx, `DELETE FROM recommendations WHERE user_id = $1`, uid); err != nil {
		return fmt.Errorf("delete recommendations: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM user_interests WHERE user_id = $1`, uid); err != nil {
		return fmt.Errorf("delete user interests: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit invalidate tx: %w", err)
	}

	return nil
}

// Candidate is a game eligible for recommendation to a user, with its tag
// set loaded.
type Candidate struct {
	GameID   int64
	GameName string
	TagIDs   []int64
	TagNames []string
}

// CandidatesForUser returns every game the user has not collected, with
// tags aggregated per game.
func (db *DB) CandidatesForUser(ctx context.Context, userID string) ([]Candidate, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT g.id,
		       g.name,
		       COALESCE(array_agg(t.id ORDER BY t.id) FILTER (WHERE t.id IS NOT NULL), '{}'),
		       COALESCE(array_agg(t.name ORDER BY t.id) FILTER (WHERE t.id IS NOT NULL), '{}')
		FROM games g
		LEFT JOIN game_tags gt ON gt.game_id = g.id
		LEFT JOIN tags t ON t.id = gt.tag_id
		WHERE NOT EXISTS (
			SELECT 1 FROM collections c
			WHERE c.user_id = $1 AND c.game_id = g.id
		)
		GROUP BY g.id
		ORDER BY g.id
	`, toUUID(userID))
	if err != nil {
		return nil, fmt.Errorf("candidates for user: %w", err)
	}
	defer rows.Close()

	var candidates []Candidate

	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.GameID, &c.GameName, &c.TagIDs, &c.TagNames); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}

		candidates = append(candidates, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("candidate rows: %w", err)
	}

	return candidates, nil
}
