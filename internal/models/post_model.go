package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"
)

type Post struct {
	ID               int64          `db:"id" json:"id"`
	Content          string         `db:"content" json:"content"`
	MediaURLs        pq.StringArray `db:"media_urls" json:"media_urls"`
	Platform         string         `db:"platform" json:"platform"`
	Metadata         PostMetadata   `db:"metadata" json:"metadata"`
	Status           string         `db:"status" json:"status"` // draft, scheduled, publishing, published, failed
	ScheduledAt      *time.Time     `db:"scheduled_at" json:"scheduled_at,omitempty"`
	PublishedAt      *time.Time     `db:"published_at" json:"published_at,omitempty"`
	RetryCount       int            `db:"retry_count" json:"retry_count"`
	MaxRetries       int            `db:"max_retries" json:"max_retries"`
	LastRetryAt      *time.Time     `db:"last_retry_at" json:"last_retry_at,omitempty"`
	FailureReason    string         `db:"failure_reason" json:"failure_reason,omitempty"`
	ExternalPostID   string         `db:"external_post_id" json:"external_post_id,omitempty"`
	PostURL          string         `db:"post_url" json:"post_url,omitempty"`
	Likes            int            `db:"likes" json:"likes"`
	Shares           int            `db:"shares" json:"shares"`
	Comments         int            `db:"comments" json:"comments"`
	Impressions      int            `db:"impressions" json:"impressions"`
	MetricsUpdatedAt *time.Time     `db:"metrics_updated_at" json:"metrics_updated_at,omitempty"`
	CreatedBy        int64          `db:"created_by" json:"created_by"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// PostMetadata is stored as jsonb.
type PostMetadata struct {
	Title        string   `json:"title,omitempty"`
	Description  string   `json:"description,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	CanonicalURL string   `json:"canonical_url,omitempty"`
	Series       string   `json:"series,omitempty"`
}

func (m PostMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *PostMetadata) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = PostMetadata{}
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return errors.New("unsupported metadata type")
	}
}

type MediaAsset struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	FileName  string    `db:"file_name" json:"file_name"`
	FileType  string    `db:"file_type" json:"file_type"`
	FileSize  int64     `db:"file_size" json:"file_size"`
	FileURL   string    `db:"file_url" json:"file_url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

const (
	PlatformTwitter  = "twitter"
	PlatformLinkedIn = "linkedin"
	PlatformFacebook = "facebook"
	PlatformDevto    = "devto"
)

const (
	PostStatusDraft      = "draft"
	PostStatusScheduled  = "scheduled"
	PostStatusPublishing = "publishing"
	PostStatusPublished  = "published"
	PostStatusFailed     = "failed"
)
