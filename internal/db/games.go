package db

import (
	"fmt"
	"time"
)

type Game struct {
	ID          int64     `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func (d *DB) CreateGame(slug, name string, description *string) (*Game, error) {
	var g Game
	err := d.conn.QueryRow(`
		INSERT INTO games (slug, name, description)
		VALUES ($1, $2, $3)
		RETURNING id, slug, name, description, created_at
	`, slug, name, description).Scan(&g.ID, &g.Slug, &g.Name, &g.Description, &g.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating game: %w", err)
	}
	return &g, nil
}

func (d *DB) GetGame(id int64) (*Game, error) {
	var g Game
	err := d.conn.QueryRow(`
		SELECT id, slug, name, description, created_at FROM games WHERE id = $1
	`, id).Scan(&g.ID, &g.Slug, &g.Name, &g.Description, &g.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("getting game: %w", err)
	}
	return &g, nil
}

func (d *DB) GameExists(id int64) (bool, error) {
	var exists bool
	err := d.conn.QueryRow(`
		SELECT EXISTS (SELECT 1 FROM games WHERE id = $1)
	`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking game: %w", err)
	}
	return exists, nil
}

// ListGames returns one page of the catalog plus the total game count.
// page is 1-based.
func (d *DB) ListGames(page, size int) ([]Game, int, error) {
	var total int
	if err := d.conn.QueryRow(`SELECT COUNT(1) FROM games`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting games: %w", err)
	}

	offset := (page - 1) * size
	rows, err := d.conn.Query(`
		SELECT id, slug, name, description, created_at
		FROM games
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, size, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing games: %w", err)
	}
	defer rows.Close()

	var games []Game
	for rows.Next() {
		var g Game
		if err := rows.Scan(&g.ID, &g.Slug, &g.Name, &g.Description, &g.CreatedAt); err != nil {
			return nil, 0, err
		}
		games = append(games, g)
	}
	return games, total, rows.Err()
}
