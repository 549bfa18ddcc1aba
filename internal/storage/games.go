package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrGameNotFound is returned when a game does not exist.
var ErrGameNotFound = errors.New("game not found")

// Game carries the catalog counters maintained elsewhere and the heat
// triple owned by this service.
type Game struct {
	ID            int64
	Name          string
	Category      string
	ReleaseDate   time.Time
	DownloadCount int64
	FollowCount   int64
	ReviewCount   int64
	HeatStatic    float64
	HeatDynamic   float64
	HeatTotal     float64
}

const gameColumns = `id, name, category, COALESCE(release_date, 'epoch'::date),
	       download_count, follow_count, review_count,
	       heat_static, heat_dynamic, heat_total`

func scanGame(row pgx.Row) (*Game, error) {
	g := &Game{}
	if err := row.Scan(
		&g.ID, &g.Name, &g.Category, &g.ReleaseDate,
		&g.DownloadCount, &g.FollowCount, &g.ReviewCount,
		&g.HeatStatic, &g.HeatDynamic, &g.HeatTotal,
	); err != nil {
		return nil, err
	}

	return g, nil
}

func (db *DB) GetGame(ctx context.Context, id int64) (*Game, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT `+gameColumns+`
		FROM games
		WHERE id = $1
	`, id)

	g, err := scanGame(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGameNotFound
		}

		return nil, fmt.Errorf("get game: %w", err)
	}

	return g, nil
}

// ListGamesAfter returns up to limit games with id > afterID, ordered by id.
// The batch heat recompute pages through the catalog with it.
func (db *DB) ListGamesAfter(ctx context.Context, afterID int64, limit int) ([]Game, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+gameColumns+`
		FROM games
		WHERE id > $1
		ORDER BY id
		LIMIT $2
	`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var games []Game

	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}

		games = append(games, *g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list games rows: %w", err)
	}

	return games, nil
}

// UpdateGameHeat persists the heat triple in a single statement so readers
// never observe a half-updated set.
func (db *DB) UpdateGameHeat(ctx context.Context, gameID int64, static, dynamic, total float64) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE games
		SET heat_static = $2, heat_dynamic = $3, heat_total = $4
		WHERE id = $1
	`, gameID, static, dynamic, total)
	if err != nil {
		return fmt.Errorf("update game heat: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrGameNotFound
	}

	return nil
}

// HotGames returns the top games by total heat, optionally filtered by
// category.
func (db *DB) HotGames(ctx context.Context, category string, limit int) ([]Game, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+gameColumns+`
		FROM games
		WHERE ($1 = '' OR category = $1)
		ORDER BY heat_total DESC, id
		LIMIT $2
	`, category, limit)
	if err != nil {
		return nil, fmt.Errorf("hot games: %w", err)
	}
	defer rows.Close()

	return collectGames(rows)
}

// NewGames returns the most recently released games, optionally filtered by
// category.
func (db *DB) NewGames(ctx context.Context, category string, limit int) ([]Game, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+gameColumns+`
		FROM games
		WHERE ($1 = '' OR category = $1)
		ORDER BY release_date DESC NULLS LAST, created_at DESC, id
		LIMIT $2
	`, category, limit)
	if err != nil {
		return nil, fmt.Errorf("new games: %w", err)
	}
	defer rows.Close()

	return collectGames(rows)
}

func collectGames(rows pgx.Rows) ([]Game, error) {
	var games []Game

	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}

		games = append(games, *g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("games rows: %w", err)
	}

	return games, nil
}
