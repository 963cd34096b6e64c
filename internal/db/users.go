package db

import (
	"fmt"
	"time"
)

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	AvatarURL *string   `json:"avatar_url"`
	Locale    *string   `json:"locale"`
	CreatedAt time.Time `json:"created_at"`
}

func (d *DB) UpsertUser(email, name string, avatarURL, locale *string) (int64, error) {
	var id int64
	err := d.conn.QueryRow(`
		INSERT INTO users (email, name, avatar_url, locale)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET
			name = EXCLUDED.name,
			avatar_url = EXCLUDED.avatar_url,
			locale = EXCLUDED.locale
		RETURNING id
	`, email, name, avatarURL, locale).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting user: %w", err)
	}
	return id, nil
}

func (d *DB) GetUser(id int64) (*User, error) {
	var u User
	err := d.conn.QueryRow(`
		SELECT id, email, name, avatar_url, locale, created_at FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Email, &u.Name, &u.AvatarURL, &u.Locale, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &u, nil
}
