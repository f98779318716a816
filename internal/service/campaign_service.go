package service

import (
	"context"
	"log/slog"

	"github.com/maheshrc27/campaignflow/internal/models"
	"github.com/maheshrc27/campaignflow/internal/repository"
	"github.com/maheshrc27/campaignflow/internal/transfer"
)

type CampaignService interface {
	Create(ctx context.Context, userID int64, req *transfer.CampaignRequest) (int64, error)
	List(ctx context.Context, status string, limit, offset int) ([]*models.Campaign, error)
	Get(ctx context.Context, id int64) (*models.Campaign, error)
	Update(ctx context.Context, id int64, req *transfer.CampaignRequest) error
	Remove(ctx context.Context, id int64) error
	Lifecycle
}

type campaignService struct {
	cr repository.CampaignRepository
	Lifecycle
}

func NewCampaignService(cr repository.CampaignRepository, lifecycle Lifecycle) CampaignService {
	return &campaignService{
		cr:        cr,
		Lifecycle: lifecycle,
	}
}

func (s *campaignService) Create(ctx context.Context, userID int64, req *transfer.CampaignRequest) (int64, error) {
	c := req.ToModel()
	c.CreatedBy = userID

	id, err := s.cr.Create(ctx, c)
	if err != nil {
		return 0, err
	}
	slog.Info("campaign created", "id", id, "type", c.EmailType)
	return id, nil
}

func (s *campaignService) List(ctx context.Context, status string, limit, offset int) ([]*models.Campaign, error) {
	limit, offset = page(limit, offset)
	campaigns, err := s.cr.List(ctx, status, limit, offset)
	if err != nil {
		return nil, err
	}
	if campaigns == nil {
		campaigns = []*models.Campaign{}
	}
	return campaigns, nil
}

func (s *campaignService) Get(ctx context.Context, id int64) (*models.Campaign, error) {
	c, err := s.cr.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, notFound("campaign", id)
	}
	return c, nil
}

func (s *campaignService) Update(ctx context.Context, id int64, req *transfer.CampaignRequest) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	c := req.ToModel()
	c.ID = id
	c.MaxRetries, err = retryBudget(req.MaxRetries, current.MaxRetries, current.RetryCount)
	if err != nil {
		return err
	}
	updated, err := s.cr.UpdateDraft(ctx, c)
	if err != nil {
		return err
	}
	if !updated {
		return invalidState("edit", "campaign", id, current.Status)
	}
	return nil
}

func (s *campaignService) Remove(ctx context.Context, id int64) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	removed, err := s.cr.Remove(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return invalidState("delete", "campaign", id, current.Status)
	}
	return nil
}
