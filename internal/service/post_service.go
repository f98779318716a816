package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/campaignflow/internal/models"
	"github.com/maheshrc27/campaignflow/internal/repository"
	"github.com/maheshrc27/campaignflow/internal/scheduler"
	"github.com/maheshrc27/campaignflow/internal/social"
	"github.com/maheshrc27/campaignflow/internal/transfer"
)

var ErrMetricsUnsupported = errors.New("engagement metrics are not available for this platform")

type PostService interface {
	Create(ctx context.Context, userID int64, req *transfer.PostRequest) (int64, error)
	List(ctx context.Context, status, platform string, limit, offset int) ([]*models.Post, error)
	Get(ctx context.Context, id int64) (*models.Post, error)
	Update(ctx context.Context, id int64, req *transfer.PostRequest) error
	Remove(ctx context.Context, id int64) error
	RefreshMetrics(ctx context.Context, id int64) (*models.Post, error)
	Lifecycle
}

type postService struct {
	pr        repository.PostRepository
	providers scheduler.ProviderSource
	clock     func() time.Time
	Lifecycle
}

func NewPostService(pr repository.PostRepository, providers scheduler.ProviderSource, lifecycle Lifecycle) PostService {
	return &postService{
		pr:        pr,
		providers: providers,
		clock:     time.Now,
		Lifecycle: lifecycle,
	}
}

func (s *postService) Create(ctx context.Context, userID int64, req *transfer.PostRequest) (int64, error) {
	p := req.ToModel()
	p.CreatedBy = userID

	id, err := s.pr.Create(ctx, p)
	if err != nil {
		return 0, err
	}
	slog.Info("post created", "id", id, "platform", p.Platform)
	return id, nil
}

func (s *postService) List(ctx context.Context, status, platform string, limit, offset int) ([]*models.Post, error) {
	limit, offset = page(limit, offset)
	posts, err := s.pr.List(ctx, status, platform, limit, offset)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return posts, nil
}

func (s *postService) Get(ctx context.Context, id int64) (*models.Post, error) {
	p, err := s.pr.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, notFound("post", id)
	}
	return p, nil
}

func (s *postService) Update(ctx context.Context, id int64, req *transfer.PostRequest) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	p := req.ToModel()
	p.ID = id
	p.MaxRetries, err = retryBudget(req.MaxRetries, current.MaxRetries, current.RetryCount)
	if err != nil {
		return err
	}
	updated, err := s.pr.UpdateDraft(ctx, p)
	if err != nil {
		return err
	}
	if !updated {
		return invalidState("edit", "post", id, current.Status)
	}
	return nil
}

func (s *postService) Remove(ctx context.Context, id int64) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	removed, err := s.pr.Remove(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return invalidState("delete", "post", id, current.Status)
	}
	return nil
}

// RefreshMetrics pulls engagement counters for a published post from its platform.
func (s *postService) RefreshMetrics(ctx context.Context, id int64) (*models.Post, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PostStatusPublished || p.ExternalPostID == "" {
		return nil, invalidState("refresh metrics of", "post", id, p.Status)
	}

	provider, err := s.providers.Get(p.Platform)
	if err != nil {
		return nil, err
	}
	mp, ok := provider.(social.MetricsProvider)
	if !ok {
		return nil, fmt.Errorf("%s: %w", p.Platform, ErrMetricsUnsupported)
	}

	m, err := mp.GetMetrics(ctx, p.ExternalPostID)
	if err != nil {
		return nil, fmt.Errorf("fetch %s metrics: %w", p.Platform, err)
	}

	now := s.clock()
	if err := s.pr.UpdateMetrics(ctx, id, m.Likes, m.Shares, m.Comments, m.Impressions, now); err != nil {
		return nil, err
	}

	p.Likes, p.Shares, p.Comments, p.Impressions = m.Likes, m.Shares, m.Comments, m.Impressions
	p.MetricsUpdatedAt = &now
	return p, nil
}
