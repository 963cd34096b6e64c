package db

import "fmt"

// RecordAnalyticsEvent inserts one analytics row. properties must be
// valid JSON or nil.
func (d *DB) RecordAnalyticsEvent(userID, gameID *int64, eventName string, properties []byte) (int64, error) {
	var props any
	if properties != nil {
		props = string(properties)
	}

	var id int64
	err := d.conn.QueryRow(`
		INSERT INTO analytics_events (user_id, game_id, event_name, properties)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, userID, gameID, eventName, props).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("recording analytics event: %w", err)
	}
	return id, nil
}
