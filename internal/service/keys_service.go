package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/campaignflow/internal/models"
	"github.com/maheshrc27/campaignflow/internal/repository"
	"github.com/maheshrc27/campaignflow/pkg/utils"
)

const maxApiKeysPerUser = 5

var (
	ErrApiKeyLimit    = fmt.Errorf("at most %d API keys can exist per user", maxApiKeysPerUser)
	ErrApiKeyNotFound = errors.New("API key not found")
	ErrApiKeyInvalid  = errors.New("invalid API key")
)

// ApiKeyService issues and checks the keys automation uses instead of a
// session. Keys are shown once at issue time; only their hashes are stored.
type ApiKeyService interface {
	Issue(ctx context.Context, userID int64, label string) (*models.ApiKey, error)
	List(ctx context.Context, userID int64) ([]*models.ApiKey, error)
	Authenticate(ctx context.Context, key string) (int64, error)
	Revoke(ctx context.Context, userID, keyID int64) error
}

type apiKeyService struct {
	keys repository.ApiKeyRepository
}

func NewApiKeyService(keys repository.ApiKeyRepository) ApiKeyService {
	return &apiKeyService{keys: keys}
}

func (s *apiKeyService) Issue(ctx context.Context, userID int64, label string) (*models.ApiKey, error) {
	existing, err := s.keys.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(existing) >= maxApiKeysPerUser {
		return nil, ErrApiKeyLimit
	}

	key, err := utils.NewApiKey()
	if err != nil {
		return nil, fmt.Errorf("generate api key: %w", err)
	}

	issued := &models.ApiKey{
		UserID:  userID,
		Label:   label,
		Key:     key,
		KeyHash: utils.HashApiKey(key),
		Hint:    utils.ApiKeyHint(key),
	}
	if issued.ID, err = s.keys.Create(ctx, issued); err != nil {
		return nil, fmt.Errorf("save api key: %w", err)
	}

	slog.Info("api key issued", "user_id", userID, "key_id", issued.ID, "hint", issued.Hint)
	return issued, nil
}

// Authenticate maps a presented key to its owner. Keys without the issue
// prefix are rejected without a lookup.
func (s *apiKeyService) Authenticate(ctx context.Context, key string) (int64, error) {
	if len(key) <= len(utils.ApiKeyPrefix) || key[:len(utils.ApiKeyPrefix)] != utils.ApiKeyPrefix {
		return 0, ErrApiKeyInvalid
	}

	owner, err := s.keys.OwnerByHash(ctx, utils.HashApiKey(key))
	if err != nil {
		return 0, err
	}
	if owner == nil {
		return 0, ErrApiKeyInvalid
	}
	return *owner, nil
}

func (s *apiKeyService) List(ctx context.Context, userID int64) ([]*models.ApiKey, error) {
	keys, err := s.keys.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	if keys == nil {
		keys = []*models.ApiKey{}
	}
	return keys, nil
}

func (s *apiKeyService) Revoke(ctx context.Context, userID, keyID int64) error {
	if userID == 0 || keyID == 0 {
		return ErrApiKeyNotFound
	}

	found, err := s.keys.Remove(ctx, keyID, userID)
	if err != nil {
		return err
	}
	if !found {
		return ErrApiKeyNotFound
	}

	slog.Info("api key revoked", "user_id", userID, "key_id", keyID)
	return nil
}
