package models

import "time"

type Campaign struct {
	ID                 int64      `db:"id" json:"id"`
	Subject            string     `db:"subject" json:"subject"`
	Content            string     `db:"content" json:"content"`
	PreviewText        string     `db:"preview_text" json:"preview_text,omitempty"`
	EmailType          string     `db:"email_type" json:"email_type"` // newsletter, new-content, custom
	ContentTitle       string     `db:"content_title" json:"content_title,omitempty"`
	ContentURL         string     `db:"content_url" json:"content_url,omitempty"`
	ContentDescription string     `db:"content_description" json:"content_description,omitempty"`
	ContentType        string     `db:"content_type" json:"content_type,omitempty"` // blog, project, snippet
	Status             string     `db:"status" json:"status"`                       // draft, scheduled, sending, sent, failed
	ScheduledAt        *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	SentAt             *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	RetryCount         int        `db:"retry_count" json:"retry_count"`
	MaxRetries         int        `db:"max_retries" json:"max_retries"`
	LastRetryAt        *time.Time `db:"last_retry_at" json:"last_retry_at,omitempty"`
	FailureReason      string     `db:"failure_reason" json:"failure_reason,omitempty"`
	ExternalEmailID    string     `db:"external_email_id" json:"external_email_id,omitempty"`
	TotalRecipients    int        `db:"total_recipients" json:"total_recipients"`
	TotalSent          int        `db:"total_sent" json:"total_sent"`
	TotalDelivered     int        `db:"total_delivered" json:"total_delivered"`
	TotalOpened        int        `db:"total_opened" json:"total_opened"`
	TotalClicked       int        `db:"total_clicked" json:"total_clicked"`
	TotalBounced       int        `db:"total_bounced" json:"total_bounced"`
	TotalUnsubscribed  int        `db:"total_unsubscribed" json:"total_unsubscribed"`
	CreatedBy          int64      `db:"created_by" json:"created_by"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// CampaignOutcome is what a finished send wave writes back.
type CampaignOutcome struct {
	Status          string
	FailureReason   string
	ExternalEmailID string
	TotalRecipients int
	TotalSent       int
	SentAt          time.Time
}

const (
	EmailTypeNewsletter = "newsletter"
	EmailTypeNewContent = "new-content"
	EmailTypeCustom     = "custom"
)

const (
	CampaignStatusDraft     = "draft"
	CampaignStatusScheduled = "scheduled"
	CampaignStatusSending   = "sending"
	CampaignStatusSent      = "sent"
	CampaignStatusFailed    = "failed"
)

const DefaultMaxRetries = 3
