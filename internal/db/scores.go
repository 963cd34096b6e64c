package db

import (
	"database/sql"
	"fmt"
	"time"
)

// ScoreEvent is one row of the append-only score log. Rows are never
// updated or deleted.
type ScoreEvent struct {
	ID        int64     `json:"id"`
	GameID    int64     `json:"game_id"`
	UserID    int64     `json:"user_id"`
	Score     int64     `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

type ScoreStats struct {
	TotalScores int64       `json:"total_scores"`
	TopScore    *ScoreEvent `json:"top_score"`
}

func (d *DB) InsertScore(gameID, userID, score int64) (*ScoreEvent, error) {
	var ev ScoreEvent
	err := d.conn.QueryRow(`
		INSERT INTO scores (game_id, user_id, score)
		VALUES ($1, $2, $3)
		RETURNING id, game_id, user_id, score, created_at
	`, gameID, userID, score).Scan(&ev.ID, &ev.GameID, &ev.UserID, &ev.Score, &ev.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting score: %w", err)
	}
	return &ev, nil
}

// EventsForGame returns the full score log for a game in insertion order.
func (d *DB) EventsForGame(gameID int64) ([]ScoreEvent, error) {
	rows, err := d.conn.Query(`
		SELECT id, game_id, user_id, score, created_at
		FROM scores
		WHERE game_id = $1
		ORDER BY id
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("querying score events: %w", err)
	}
	defer rows.Close()
	return scanScores(rows)
}

func (d *DB) RecentScores(gameID int64, limit int) ([]ScoreEvent, error) {
	rows, err := d.conn.Query(`
		SELECT id, game_id, user_id, score, created_at
		FROM scores
		WHERE game_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, gameID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent scores: %w", err)
	}
	defer rows.Close()
	return scanScores(rows)
}

func (d *DB) TopScores(gameID int64, limit int) ([]ScoreEvent, error) {
	rows, err := d.conn.Query(`
		SELECT id, game_id, user_id, score, created_at
		FROM scores
		WHERE game_id = $1
		ORDER BY score DESC, created_at DESC, id DESC
		LIMIT $2
	`, gameID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying top scores: %w", err)
	}
	defer rows.Close()
	return scanScores(rows)
}

// GameScoreStats returns the summary broadcast after each insert: the
// total score count and the single highest score row.
func (d *DB) GameScoreStats(gameID int64) (*ScoreStats, error) {
	stats := &ScoreStats{}
	err := d.conn.QueryRow(`
		SELECT COUNT(1) FROM scores WHERE game_id = $1
	`, gameID).Scan(&stats.TotalScores)
	if err != nil {
		return nil, fmt.Errorf("counting scores: %w", err)
	}

	top, err := d.TopScores(gameID, 1)
	if err != nil {
		return nil, err
	}
	if len(top) > 0 {
		stats.TopScore = &top[0]
	}
	return stats, nil
}

func scanScores(rows *sql.Rows) ([]ScoreEvent, error) {
	var events []ScoreEvent
	for rows.Next() {
		var ev ScoreEvent
		if err := rows.Scan(&ev.ID, &ev.GameID, &ev.UserID, &ev.Score, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
