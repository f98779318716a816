package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/campaignflow/internal/models"
)

type ApiKeyRepository interface {
	OwnerByHash(ctx context.Context, keyHash string) (*int64, error)
	GetByUserID(ctx context.Context, userID int64) ([]*models.ApiKey, error)
	Create(ctx context.Context, apiKey *models.ApiKey) (int64, error)
	Remove(ctx context.Context, id, userID int64) (bool, error)
}

type apiKeyRepository struct {
	db *sql.DB
}

func NewApiKeyRepository(db *sql.DB) ApiKeyRepository {
	return &apiKeyRepository{db: db}
}

// OwnerByHash resolves a key hash to its owner and stamps last_used_at.
// An unknown hash yields nil, nil.
func (r *apiKeyRepository) OwnerByHash(ctx context.Context, keyHash string) (*int64, error) {
	var userID int64
	query := `UPDATE api_keys SET last_used_at = NOW() WHERE key_hash = $1 RETURNING user_id`
	err := r.db.QueryRowContext(ctx, query, keyHash).Scan(&userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &userID, nil
}

func (r *apiKeyRepository) GetByUserID(ctx context.Context, userID int64) ([]*models.ApiKey, error) {
	query := `SELECT id, user_id, label, key_hint, last_used_at, created_at FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var apiKeys []*models.ApiKey
	for rows.Next() {
		var k models.ApiKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.Label, &k.Hint, &k.LastUsedAt, &k.CreatedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		apiKeys = append(apiKeys, &k)
	}
	return apiKeys, rows.Err()
}

func (r *apiKeyRepository) Create(ctx context.Context, apiKey *models.ApiKey) (int64, error) {
	query := "INSERT INTO api_keys (user_id, label, key_hash, key_hint) VALUES ($1, $2, $3, $4) RETURNING id"
	var id int64
	err := r.db.QueryRowContext(ctx, query, apiKey.UserID, apiKey.Label, apiKey.KeyHash, apiKey.Hint).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

// Remove deletes a key owned by userID and reports whether one was found.
func (r *apiKeyRepository) Remove(ctx context.Context, id, userID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
