package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/maheshrc27/campaignflow/internal/models"
	"github.com/maheshrc27/campaignflow/internal/repository"
	"github.com/maheshrc27/campaignflow/internal/transfer"
)

var ErrInvalidUnsubscribeToken = errors.New("invalid or expired unsubscribe link")

type TokenCodec interface {
	Generate(email string) (string, error)
	Verify(token string) (string, bool)
}

type SubscriberService interface {
	Subscribe(ctx context.Context, req *transfer.SubscribeRequest) (*models.Subscriber, error)
	Unsubscribe(ctx context.Context, token string) (string, error)
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*models.Subscriber, error)
	CountActive(ctx context.Context) (int, error)
}

type subscriberService struct {
	sr     repository.SubscriberRepository
	tokens TokenCodec
}

func NewSubscriberService(sr repository.SubscriberRepository, tokens TokenCodec) SubscriberService {
	return &subscriberService{
		sr:     sr,
		tokens: tokens,
	}
}

// Subscribe adds the address or reactivates it after an earlier unsubscribe.
func (s *subscriberService) Subscribe(ctx context.Context, req *transfer.SubscribeRequest) (*models.Subscriber, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	token, err := s.tokens.Generate(email)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	sub, err := s.sr.Upsert(ctx, email, strings.TrimSpace(req.Name), token)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Unsubscribe deactivates the subscriber named by a signed token. Unknown or
// already inactive addresses succeed so the link is safe to click twice.
func (s *subscriberService) Unsubscribe(ctx context.Context, token string) (string, error) {
	email, ok := s.tokens.Verify(token)
	if !ok {
		return "", ErrInvalidUnsubscribeToken
	}

	changed, err := s.sr.Deactivate(ctx, email)
	if err != nil {
		return "", err
	}
	if changed {
		slog.Info("subscriber unsubscribed", "email", email)
	}
	return email, nil
}

func (s *subscriberService) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*models.Subscriber, error) {
	limit, offset = page(limit, offset)
	subs, err := s.sr.List(ctx, activeOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	if subs == nil {
		subs = []*models.Subscriber{}
	}
	return subs, nil
}

func (s *subscriberService) CountActive(ctx context.Context) (int, error) {
	return s.sr.CountActive(ctx)
}
