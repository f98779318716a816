package email

import (
	"context"
	"fmt"
	"log/slog"

	config "github.com/maheshrc27/campaignflow/configs"
)

type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
	Text    string
	ReplyTo string
	Headers map[string]string
}

// Transport hands a message to an email provider and returns its message id.
type Transport interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// NewTransport picks the transport named by cfg.Transport. It returns a nil
// Transport when the selected provider has no credentials.
func NewTransport(cfg config.Email, logger *slog.Logger) (Transport, error) {
	switch cfg.Transport {
	case "", "resend":
		if cfg.ResendAPIKey == "" {
			logger.Warn("RESEND_API_KEY is not set, email sending is disabled")
			return nil, nil
		}
		return NewResendTransport(cfg.ResendAPIKey), nil
	case "smtp":
		if cfg.SMTP.Host == "" {
			logger.Warn("SMTP_HOST is not set, email sending is disabled")
			return nil, nil
		}
		var signer *DKIMSigner
		if cfg.DKIM.Domain != "" && cfg.DKIM.KeyFile != "" {
			s, err := NewDKIMSignerFromFile(cfg.DKIM.KeyFile, cfg.DKIM.Domain, cfg.DKIM.Selector)
			if err != nil {
				return nil, err
			}
			signer = s
		}
		return NewSMTPTransport(SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			Signer:   signer,
		}), nil
	default:
		return nil, fmt.Errorf("unknown email transport %q", cfg.Transport)
	}
}
