package models

import "time"

type Subscriber struct {
	ID               int64      `db:"id" json:"id"`
	Email            string     `db:"email" json:"email"`
	Name             string     `db:"name" json:"name"`
	IsActive         bool       `db:"is_active" json:"is_active"`
	UnsubscribeToken string     `db:"unsubscribe_token" json:"-"`
	SubscribedAt     time.Time  `db:"subscribed_at" json:"subscribed_at"`
	UnsubscribedAt   *time.Time `db:"unsubscribed_at" json:"unsubscribed_at,omitempty"`
}
