package email

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/maheshrc27/campaignflow/internal/metrics"
)

const DefaultBatchSize = 10

type Recipient struct {
	Email string
	Name  string
}

type Delivery struct {
	Email   string `json:"email"`
	EmailID string `json:"email_id"`
}

type DeliveryFailure struct {
	Email string `json:"email"`
	Error string `json:"error"`
}

type BulkResult struct {
	TotalSent   int               `json:"total_sent"`
	TotalFailed int               `json:"total_failed"`
	Successful  []Delivery        `json:"successful"`
	Failed      []DeliveryFailure `json:"failed"`
}

func (r *BulkResult) record(email string, res SendResult) {
	if res.Success {
		r.TotalSent++
		r.Successful = append(r.Successful, Delivery{Email: email, EmailID: res.ID})
		return
	}
	r.TotalFailed++
	r.Failed = append(r.Failed, DeliveryFailure{Email: email, Error: res.Error})
}

func (r *BulkResult) failAll(recipients []Recipient, reason string) {
	for _, rcpt := range recipients {
		r.record(rcpt.Email, SendResult{Error: reason})
	}
}

// TokenGenerator issues the unsubscribe token embedded in personalized emails.
type TokenGenerator interface {
	Generate(email string) (string, error)
}

// BulkOptions configures a BulkSender. A zero BatchDelay sends batches back to back.
type BulkOptions struct {
	BatchSize  int
	BatchDelay time.Duration
	SiteURL    string
	Tokens     TokenGenerator
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// BulkSender sends one logical email to many recipients. Batches run one
// after another; recipients inside a batch are sent concurrently and the
// whole batch settles before the next one starts.
type BulkSender struct {
	sender     Sender
	batchSize  int
	batchDelay time.Duration
	siteURL    string
	tokens     TokenGenerator
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewBulkSender(sender Sender, opts BulkOptions) *BulkSender {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &BulkSender{
		sender:     sender,
		batchSize:  opts.BatchSize,
		batchDelay: opts.BatchDelay,
		siteURL:    opts.SiteURL,
		tokens:     opts.Tokens,
		metrics:    opts.Metrics,
		logger:     opts.Logger.With("component", "bulk_email"),
	}
}

type Newsletter struct {
	Subject     string
	PreviewText string
	Content     string
}

type NewContent struct {
	Subject     string
	Title       string
	URL         string
	Description string
	ContentType string
}

// SendBulkEmails sends the same HTML to every recipient.
func (b *BulkSender) SendBulkEmails(ctx context.Context, recipients []Recipient, subject, html string) BulkResult {
	return b.dispatch(ctx, recipients, func(r Recipient) (Message, error) {
		return Message{To: []string{r.Email}, Subject: subject, HTML: html}, nil
	})
}

func (b *BulkSender) SendNewsletter(ctx context.Context, recipients []Recipient, n Newsletter) BulkResult {
	return b.dispatch(ctx, recipients, func(r Recipient) (Message, error) {
		unsubscribeURL, err := b.unsubscribeURL(r.Email)
		if err != nil {
			return Message{}, err
		}
		html, err := render(newsletterTemplate, newsletterData{
			Subject:        n.Subject,
			PreviewText:    n.PreviewText,
			Name:           r.Name,
			Content:        template.HTML(n.Content),
			SiteURL:        b.siteURL,
			UnsubscribeURL: unsubscribeURL,
		})
		if err != nil {
			return Message{}, err
		}
		return Message{
			To:      []string{r.Email},
			Subject: n.Subject,
			HTML:    html,
			Headers: listUnsubscribe(unsubscribeURL),
		}, nil
	})
}

func (b *BulkSender) SendNewContentNotification(ctx context.Context, recipients []Recipient, c NewContent) BulkResult {
	subject := c.Subject
	if subject == "" {
		subject = fmt.Sprintf("New %s: %s", c.ContentType, c.Title)
	}

	return b.dispatch(ctx, recipients, func(r Recipient) (Message, error) {
		unsubscribeURL, err := b.unsubscribeURL(r.Email)
		if err != nil {
			return Message{}, err
		}
		data := newContentData{
			Name:           r.Name,
			Title:          c.Title,
			URL:            c.URL,
			Description:    c.Description,
			ContentType:    c.ContentType,
			UnsubscribeURL: unsubscribeURL,
		}
		html, err := render(newContentTemplate, data)
		if err != nil {
			return Message{}, err
		}
		return Message{
			To:      []string{r.Email},
			Subject: subject,
			HTML:    html,
			Text:    newContentText(data),
			Headers: listUnsubscribe(unsubscribeURL),
		}, nil
	})
}

func (b *BulkSender) unsubscribeURL(email string) (string, error) {
	if b.tokens == nil {
		return "", fmt.Errorf("unsubscribe tokens are not configured")
	}
	token, err := b.tokens.Generate(email)
	if err != nil {
		return "", fmt.Errorf("generate unsubscribe token: %w", err)
	}
	return b.siteURL + "/unsubscribe?token=" + url.QueryEscape(token), nil
}

func listUnsubscribe(u string) map[string]string {
	return map[string]string{"List-Unsubscribe": "<" + u + ">"}
}

func (b *BulkSender) dispatch(ctx context.Context, recipients []Recipient, compose func(Recipient) (Message, error)) BulkResult {
	result := BulkResult{Successful: []Delivery{}, Failed: []DeliveryFailure{}}
	defer func() {
		b.metrics.RecordEmails(result.TotalSent, result.TotalFailed)
	}()

	for start := 0; start < len(recipients); start += b.batchSize {
		if err := ctx.Err(); err != nil {
			result.failAll(recipients[start:], err.Error())
			return result
		}

		end := min(start+b.batchSize, len(recipients))
		batch := recipients[start:end]
		outcomes := make([]SendResult, len(batch))

		var wg sync.WaitGroup
		for i, r := range batch {
			wg.Add(1)
			go func(i int, r Recipient) {
				defer wg.Done()
				outcomes[i] = b.sendOne(ctx, r, compose)
			}(i, r)
		}
		wg.Wait()

		for i, res := range outcomes {
			result.record(batch[i].Email, res)
		}
		b.logger.Debug("batch settled", "from", start, "to", end, "total", len(recipients))

		if end < len(recipients) && b.batchDelay > 0 {
			timer := time.NewTimer(b.batchDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				result.failAll(recipients[end:], ctx.Err().Error())
				return result
			case <-timer.C:
			}
		}
	}

	return result
}

func (b *BulkSender) sendOne(ctx context.Context, r Recipient, compose func(Recipient) (Message, error)) (res SendResult) {
	defer func() {
		if p := recover(); p != nil {
			b.logger.Error("send panicked", "email", r.Email, "panic", p)
			res = SendResult{Error: fmt.Sprintf("panic: %v", p)}
		}
	}()

	msg, err := compose(r)
	if err != nil {
		return SendResult{Error: err.Error()}
	}
	return b.sender.SendEmail(ctx, msg)
}
