package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/campaignflow/internal/models"
)

type CampaignRepository interface {
	Create(ctx context.Context, c *models.Campaign) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Campaign, error)
	List(ctx context.Context, status string, limit, offset int) ([]*models.Campaign, error)
	UpdateDraft(ctx context.Context, c *models.Campaign) (bool, error)
	CompleteSend(ctx context.Context, id int64, outcome models.CampaignOutcome) error
	Touch(ctx context.Context, id int64) error
	Remove(ctx context.Context, id int64) (bool, error)
	DispatchStore
}

// DispatchStore is the lifecycle surface shared by campaigns and posts.
type DispatchStore interface {
	ListDue(ctx context.Context, now time.Time) ([]*models.DispatchState, error)
	ListStale(ctx context.Context, inFlight string, before time.Time) ([]*models.DispatchState, error)
	GetState(ctx context.Context, id int64) (*models.DispatchState, error)
	Claim(ctx context.Context, id int64, inFlight string) (bool, error)
	MarkFailed(ctx context.Context, id int64, reason string) error
	FailStale(ctx context.Context, id int64, inFlight string, before time.Time, reason string) (bool, error)
	Requeue(ctx context.Context, id int64, retryCount int, at time.Time) (bool, error)
	Schedule(ctx context.Context, id int64, at time.Time) (bool, error)
	Unschedule(ctx context.Context, id int64, from string) (bool, error)
}

type campaignRepository struct {
	dispatchStore
}

func NewCampaignRepository(db *sql.DB) CampaignRepository {
	return &campaignRepository{dispatchStore{db: db, table: "campaigns", inFlight: models.CampaignStatusSending}}
}

const campaignColumns = `id, subject, content, preview_text, email_type, content_title, content_url,
	content_description, content_type, status, scheduled_at, sent_at, retry_count, max_retries,
	last_retry_at, COALESCE(failure_reason, ''), external_email_id, total_recipients, total_sent,
	total_delivered, total_opened, total_clicked, total_bounced, total_unsubscribed,
	COALESCE(created_by, 0), created_at, updated_at`

func scanCampaign(row interface{ Scan(...any) error }) (*models.Campaign, error) {
	var c models.Campaign
	err := row.Scan(&c.ID, &c.Subject, &c.Content, &c.PreviewText, &c.EmailType, &c.ContentTitle, &c.ContentURL,
		&c.ContentDescription, &c.ContentType, &c.Status, &c.ScheduledAt, &c.SentAt, &c.RetryCount, &c.MaxRetries,
		&c.LastRetryAt, &c.FailureReason, &c.ExternalEmailID, &c.TotalRecipients, &c.TotalSent,
		&c.TotalDelivered, &c.TotalOpened, &c.TotalClicked, &c.TotalBounced, &c.TotalUnsubscribed,
		&c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *campaignRepository) Create(ctx context.Context, c *models.Campaign) (int64, error) {
	query := `
		INSERT INTO campaigns (subject, content, preview_text, email_type, content_title, content_url,
			content_description, content_type, status, max_retries, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'draft', $9, NULLIF($10, 0))
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, c.Subject, c.Content, c.PreviewText, c.EmailType, c.ContentTitle,
		c.ContentURL, c.ContentDescription, c.ContentType, c.MaxRetries, c.CreatedBy).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *campaignRepository) GetByID(ctx context.Context, id int64) (*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`
	c, err := scanCampaign(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return c, nil
}

func (r *campaignRepository) List(ctx context.Context, status string, limit, offset int) ([]*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, status, limit, offset)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var campaigns []*models.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// UpdateDraft rewrites the content of a campaign that is still a draft.
func (r *campaignRepository) UpdateDraft(ctx context.Context, c *models.Campaign) (bool, error) {
	query := `
		UPDATE campaigns
		SET subject = $2,
			content = $3,
			preview_text = $4,
			email_type = $5,
			content_title = $6,
			content_url = $7,
			content_description = $8,
			content_type = $9,
			max_retries = $10,
			updated_at = NOW()
		WHERE id = $1 AND status = 'draft' AND retry_count <= $10
	`
	return r.exec(ctx, query, c.ID, c.Subject, c.Content, c.PreviewText, c.EmailType, c.ContentTitle,
		c.ContentURL, c.ContentDescription, c.ContentType, c.MaxRetries)
}

// CompleteSend records the terminal status and counters of a send wave.
func (r *campaignRepository) CompleteSend(ctx context.Context, id int64, o models.CampaignOutcome) error {
	query := `
		UPDATE campaigns
		SET status = $2,
			failure_reason = NULLIF($3, ''),
			external_email_id = CASE WHEN $4 = '' THEN external_email_id ELSE $4 END,
			total_recipients = $5,
			total_sent = $6,
			sent_at = $7,
			updated_at = NOW()
		WHERE id = $1 AND status = 'sending'
	`
	ok, err := r.exec(ctx, query, id, o.Status, o.FailureReason, o.ExternalEmailID,
		o.TotalRecipients, o.TotalSent, o.SentAt)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("campaign %d: %w", id, ErrNotInFlight)
	}
	return nil
}

// Remove deletes a campaign unless it is being sent right now.
func (r *campaignRepository) Remove(ctx context.Context, id int64) (bool, error) {
	return r.exec(ctx, `DELETE FROM campaigns WHERE id = $1 AND status <> 'sending'`, id)
}
