package models

import "time"

// ApiKey authorizes automation (CI, external cron) against the admin API.
// Only the hash is persisted; Key is filled once, when the key is issued.
type ApiKey struct {
	ID         int64      `db:"id" json:"id"`
	UserID     int64      `db:"user_id" json:"user_id"`
	Label      string     `db:"label" json:"label"`
	Key        string     `db:"-" json:"api_key,omitempty"`
	KeyHash    string     `db:"key_hash" json:"-"`
	Hint       string     `db:"key_hint" json:"hint"`
	LastUsedAt *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}
