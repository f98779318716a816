package email

import (
	"context"
	"fmt"
	"log/slog"
)

type SendResult struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Sender is the single-message surface the bulk dispatcher builds on.
type Sender interface {
	SendEmail(ctx context.Context, msg Message) SendResult
}

type Service struct {
	transport Transport
	from      string
	replyTo   string
	logger    *slog.Logger
}

func NewService(transport Transport, from, replyTo string, logger *slog.Logger) *Service {
	return &Service{
		transport: transport,
		from:      from,
		replyTo:   replyTo,
		logger:    logger.With("component", "email"),
	}
}

func (s *Service) Configured() bool {
	return s.transport != nil && s.from != ""
}

// SendEmail never returns an error; transport failures and panics are
// reported through the result.
func (s *Service) SendEmail(ctx context.Context, msg Message) (result SendResult) {
	defer func() {
		if r := recover(); r != nil {
			result = SendResult{Error: fmt.Sprintf("email transport panic: %v", r)}
		}
	}()

	if !s.Configured() {
		return SendResult{Error: "Email service not configured"}
	}
	if msg.From == "" {
		msg.From = s.from
	}
	if msg.ReplyTo == "" {
		msg.ReplyTo = s.replyTo
	}

	id, err := s.transport.Send(ctx, msg)
	if err != nil {
		s.logger.Warn("send failed", "to", msg.To, "error", err)
		return SendResult{Error: err.Error()}
	}
	return SendResult{Success: true, ID: id}
}
