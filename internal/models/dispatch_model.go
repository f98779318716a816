package models

import "time"

// DispatchState is the lifecycle bookkeeping shared by campaigns and posts.
type DispatchState struct {
	ID          int64      `db:"id" json:"id"`
	Status      string     `db:"status" json:"status"`
	ScheduledAt *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	RetryCount  int        `db:"retry_count" json:"retry_count"`
	MaxRetries  int        `db:"max_retries" json:"max_retries"`
	LastRetryAt *time.Time `db:"last_retry_at" json:"last_retry_at,omitempty"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

type DispatchHistory struct {
	ID           int64     `db:"id" json:"id"`
	Kind         string    `db:"kind" json:"kind"` // campaign, post
	ItemID       int64     `db:"item_id" json:"item_id"`
	Succeeded    bool      `db:"succeeded" json:"succeeded"`
	ErrorMessage string    `db:"error_message" json:"error_message"`
	Recipients   int       `db:"recipients" json:"recipients"`
	Sent         int       `db:"sent" json:"sent"`
	Failed       int       `db:"failed" json:"failed"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
