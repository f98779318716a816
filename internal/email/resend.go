package email

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
)

type ResendTransport struct {
	client *resend.Client
}

func NewResendTransport(apiKey string) *ResendTransport {
	return &ResendTransport{client: resend.NewClient(apiKey)}
}

func (t *ResendTransport) Send(ctx context.Context, msg Message) (string, error) {
	params := &resend.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
		ReplyTo: msg.ReplyTo,
		Headers: msg.Headers,
	}

	sent, err := t.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return "", fmt.Errorf("resend: %w", err)
	}
	return sent.Id, nil
}
