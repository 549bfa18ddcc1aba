package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
)

// The interest vector builder reads three implicit-feedback tiers. Each
// query returns one tag id per (signal, tag) occurrence so that a tag
// reached through several games accumulates weight.

// CollectedGameTagIDs returns the tag ids of games the user collected.
func (db *DB) CollectedGameTagIDs(ctx context.Context, userID string) ([]int64, error) {
	return db.tagIDQuery(ctx, `
		SELECT gt.tag_id
		FROM collections c
		JOIN game_tags gt ON gt.game_id = c.game_id
		WHERE c.user_id = $1
	`, userID)
}

// GuideCollectedGameTagIDs returns the tag ids of games whose guides the
// user collected.
func (db *DB) GuideCollectedGameTagIDs(ctx context.Context, userID string) ([]int64, error) {
	return db.tagIDQuery(ctx, `
		SELECT gt.tag_id
		FROM guide_collections gc
		JOIN guides g ON g.id = gc.guide_id
		JOIN game_tags gt ON gt.game_id = g.game_id
		WHERE gc.user_id = $1
	`, userID)
}

// LikedPostGameTagIDs returns the tag ids of games attached to posts the
// user liked. Posts without a game contribute nothing.
func (db *DB) LikedPostGameTagIDs(ctx context.Context, userID string) ([]int64, error) {
	return db.tagIDQuery(ctx, `
		SELECT gt.tag_id
		FROM post_likes pl
		JOIN posts p ON p.id = pl.post_id AND p.game_id IS NOT NULL
		JOIN game_tags gt ON gt.game_id = p.game_id
		WHERE pl.user_id = $1
	`, userID)
}

func (db *DB) tagIDQuery(ctx context.Context, query, userID string) ([]int64, error) {
	rows, err := db.Pool.Query(ctx, query, toUUID(userID))
	if err != nil {
		return nil, fmt.Errorf("tag signal query: %w", err)
	}
	defer rows.Close()

	var ids []int64

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan tag id: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tag signal rows: %w", err)
	}

	return ids, nil
}

// ActiveUserIDs returns the ids of users eligible for batch recommendation
// generation.
func (db *DB) ActiveUserIDs(ctx context.Context) ([]string, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id FROM users WHERE status = $1 ORDER BY created_at
	`, UserStatusNormal)
	if err != nil {
		return nil, fmt.Errorf("active user ids: %w", err)
	}
	defer rows.Close()

	var ids []string

	for rows.Next() {
		var id pgtype.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}

		ids = append(ids, fromUUID(id))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("active user rows: %w", err)
	}

	return ids, nil
}
