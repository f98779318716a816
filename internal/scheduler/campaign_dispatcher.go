package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/campaignflow/internal/email"
	"github.com/maheshrc27/campaignflow/internal/models"
)

const noSubscribersReason = "No active subscribers"

// DefaultHeartbeat is how often a sending campaign refreshes updated_at. It
// must stay well below the reconcile cutoff.
const DefaultHeartbeat = time.Minute

type CampaignStore interface {
	GetByID(ctx context.Context, id int64) (*models.Campaign, error)
	CompleteSend(ctx context.Context, id int64, outcome models.CampaignOutcome) error
	Touch(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, reason string) error
}

type SubscriberSource interface {
	ListActive(ctx context.Context) ([]*models.Subscriber, error)
}

type BulkMailer interface {
	SendBulkEmails(ctx context.Context, recipients []email.Recipient, subject, html string) email.BulkResult
	SendNewsletter(ctx context.Context, recipients []email.Recipient, n email.Newsletter) email.BulkResult
	SendNewContentNotification(ctx context.Context, recipients []email.Recipient, c email.NewContent) email.BulkResult
}

// CampaignDispatcher fans one campaign out to every active subscriber. The
// campaign is sent only when every recipient succeeded.
type CampaignDispatcher struct {
	campaigns   CampaignStore
	subscribers SubscriberSource
	mailer      BulkMailer
	clock       func() time.Time
	heartbeat   time.Duration
}

func NewCampaignDispatcher(campaigns CampaignStore, subscribers SubscriberSource, mailer BulkMailer, clock func() time.Time) *CampaignDispatcher {
	if clock == nil {
		clock = time.Now
	}
	return &CampaignDispatcher{
		campaigns:   campaigns,
		subscribers: subscribers,
		mailer:      mailer,
		clock:       clock,
		heartbeat:   DefaultHeartbeat,
	}
}

func (d *CampaignDispatcher) WithHeartbeat(every time.Duration) *CampaignDispatcher {
	if every > 0 {
		d.heartbeat = every
	}
	return d
}

// keepAlive touches the campaign row until stop is called.
func (d *CampaignDispatcher) keepAlive(ctx context.Context, id int64) (stop func()) {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(d.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := d.campaigns.Touch(ctx, id); err != nil {
					slog.Warn("campaign heartbeat failed", "id", id, "error", err)
				}
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}

func (d *CampaignDispatcher) Dispatch(ctx context.Context, id int64) (Outcome, error) {
	c, err := d.campaigns.GetByID(ctx, id)
	if err != nil {
		return Outcome{}, err
	}
	if c == nil {
		return Outcome{}, fmt.Errorf("campaign %d disappeared during dispatch", id)
	}

	subs, err := d.subscribers.ListActive(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("load subscribers: %w", err)
	}
	if len(subs) == 0 {
		if err := d.campaigns.MarkFailed(context.WithoutCancel(ctx), id, noSubscribersReason); err != nil {
			return Outcome{}, err
		}
		return Outcome{Error: noSubscribersReason}, nil
	}

	recipients := make([]email.Recipient, 0, len(subs))
	for _, s := range subs {
		if !s.IsActive {
			continue
		}
		recipients = append(recipients, email.Recipient{Email: s.Email, Name: s.Name})
	}

	stop := d.keepAlive(context.WithoutCancel(ctx), id)
	defer stop()

	var res email.BulkResult
	switch c.EmailType {
	case models.EmailTypeNewsletter:
		res = d.mailer.SendNewsletter(ctx, recipients, email.Newsletter{
			Subject:     c.Subject,
			PreviewText: c.PreviewText,
			Content:     c.Content,
		})
	case models.EmailTypeNewContent:
		res = d.mailer.SendNewContentNotification(ctx, recipients, email.NewContent{
			Subject:     c.Subject,
			Title:       c.ContentTitle,
			URL:         c.ContentURL,
			Description: c.ContentDescription,
			ContentType: c.ContentType,
		})
	default:
		res = d.mailer.SendBulkEmails(ctx, recipients, c.Subject, c.Content)
	}
	stop()

	total := len(recipients)
	outcome := models.CampaignOutcome{
		Status:          models.CampaignStatusSent,
		TotalRecipients: total,
		TotalSent:       res.TotalSent,
		SentAt:          d.clock(),
	}
	if len(res.Successful) > 0 {
		outcome.ExternalEmailID = res.Successful[0].EmailID
	}
	if res.TotalFailed > 0 {
		outcome.Status = models.CampaignStatusFailed
		outcome.FailureReason = fmt.Sprintf("Failed to send to %d of %d recipients", res.TotalFailed, total)
	}

	if err := d.campaigns.CompleteSend(context.WithoutCancel(ctx), id, outcome); err != nil {
		return Outcome{}, fmt.Errorf("record send outcome: %w", err)
	}

	return Outcome{
		Succeeded:  res.TotalFailed == 0,
		Error:      outcome.FailureReason,
		Recipients: total,
		Sent:       res.TotalSent,
		Failed:     res.TotalFailed,
	}, nil
}
