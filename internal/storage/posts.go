package db

import (
	"context"
	"fmt"
	"time"
)

// Post is the read-only engagement record the dynamic heat calculator
// consumes. Deleted posts are filtered at the query level.
type Post struct {
	ID           int64
	GameID       int64
	LikeCount    int64
	CommentCount int64
	CreatedAt    time.Time
}

// PostsForGameSince returns the non-deleted posts attached to a game with
// created_at on or after the cutoff.
func (db *DB) PostsForGameSince(ctx context.Context, gameID int64, cutoff time.Time) ([]Post, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, game_id, like_count, comment_count, created_at
		FROM posts
		WHERE game_id = $1
		  AND NOT deleted
		  AND created_at >= $2
		ORDER BY created_at DESC
	`, gameID, toTimestamptz(cutoff))
	if err != nil {
		return nil, fmt.Errorf("posts for game: %w", err)
	}
	defer rows.Close()

	var posts []Post

	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.GameID, &p.LikeCount, &p.CommentCount, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}

		posts = append(posts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("post rows: %w", err)
	}

	return posts, nil
}
