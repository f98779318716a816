package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/campaignflow/internal/models"
)

type DispatchHistoryRepository interface {
	Create(ctx context.Context, h *models.DispatchHistory) (int64, error)
	ListByItem(ctx context.Context, kind string, itemID int64) ([]*models.DispatchHistory, error)
}

type dispatchHistoryRepository struct {
	db *sql.DB
}

func NewDispatchHistoryRepository(db *sql.DB) DispatchHistoryRepository {
	return &dispatchHistoryRepository{db: db}
}

func (r *dispatchHistoryRepository) Create(ctx context.Context, h *models.DispatchHistory) (int64, error) {
	query := `
		INSERT INTO dispatch_history (kind, item_id, succeeded, error_message, recipients, sent, failed)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, h.Kind, h.ItemID, h.Succeeded, h.ErrorMessage, h.Recipients, h.Sent, h.Failed).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *dispatchHistoryRepository) ListByItem(ctx context.Context, kind string, itemID int64) ([]*models.DispatchHistory, error) {
	query := `
		SELECT id, kind, item_id, succeeded, error_message, recipients, sent, failed, created_at
		FROM dispatch_history
		WHERE kind = $1 AND item_id = $2
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, kind, itemID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var history []*models.DispatchHistory
	for rows.Next() {
		var h models.DispatchHistory
		err := rows.Scan(&h.ID, &h.Kind, &h.ItemID, &h.Succeeded, &h.ErrorMessage, &h.Recipients, &h.Sent, &h.Failed, &h.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		history = append(history, &h)
	}
	return history, rows.Err()
}
