package db

import (
	"context"
	"fmt"
)

// ReplaceUserInterests swaps the user's interest vector for the given one.
// Delete and insert run in one transaction so concurrent readers never see
// an empty intermediate state.
func (db *DB) ReplaceUserInterests(ctx context.Context, userID string, weights map[int64]float64) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin interests tx: %w", err)
	}

	defer func() {
		//nolint:errcheck // rollback after commit is a no-op
		_ = tx.Rollback(ctx)
	}()

	uid := toUUID(userID)

	if _, err := tx.Exec(ctx, `DELETE FROM user_interests WHERE user_id = $1`, uid); err != nil {
		return fmt.Errorf("delete user interests: %w", err)
	}

	for tagID, weight := range weights {
		if _, err := tx.Exec(ctx, `
			INSERT INTO user_interests (user_id, tag_id, weight, updated_at)
			VALUES ($1, $2, $3, now())
		`, uid, tagID, weight); err != nil {
			return fmt.Errorf("insert user interest: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit interests tx: %w", err)
	}

	return nil
}

// UserInterestVector returns the user's persisted tag weights.
func (db *DB) UserInterestVector(ctx context.Context, userID string) (map[int64]float64, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT tag_id, weight FROM user_interests WHERE user_id = $1
	`, toUUID(userID))
	if err != nil {
		return nil, fmt.Errorf("user interest vector: %w", err)
	}
	defer rows.Close()

	vector := make(map[int64]float64)

	for rows.Next() {
		var (
			tagID  int64
			weight float64
		)

		if err := rows.Scan(&tagID, &weight); err != nil {
			return nil, fmt.Errorf("scan interest: %w", err)
		}

		vector[tagID] = weight
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("interest rows: %w", err)
	}

	return vector, nil
}
