package service

import (
	"context"

	"github.com/maheshrc27/campaignflow/internal/models"
	"github.com/maheshrc27/campaignflow/internal/repository"
)

// HistoryService reads the per-attempt dispatch log of a campaign or post.
type HistoryService interface {
	List(ctx context.Context, item string, id int64) ([]*models.DispatchHistory, error)
}

type historyService struct {
	h repository.DispatchHistoryRepository
}

func NewHistoryService(h repository.DispatchHistoryRepository) HistoryService {
	return &historyService{h: h}
}

func (s *historyService) List(ctx context.Context, item string, id int64) ([]*models.DispatchHistory, error) {
	history, err := s.h.ListByItem(ctx, item, id)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []*models.DispatchHistory{}
	}
	return history, nil
}
