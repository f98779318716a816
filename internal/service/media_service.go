package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/maheshrc27/campaignflow/internal/models"
	"github.com/maheshrc27/campaignflow/internal/repository"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const MaxUploadSize = 15 << 20

var (
	ErrEmptyUpload      = errors.New("file is empty")
	ErrUploadTooLarge   = errors.New("file exceeds the 15MB upload limit")
	ErrUnsupportedMedia = errors.New("unsupported file type")
	allowedMediaTypes   = map[string]struct{}{"jpg": {}, "png": {}, "gif": {}, "webp": {}, "mp4": {}, "mov": {}}
)

type MediaService interface {
	Upload(ctx context.Context, userID int64, data []byte) (*models.MediaAsset, error)
	List(ctx context.Context, userID int64) ([]*models.MediaAsset, error)
	Remove(ctx context.Context, userID, id int64) error
}

type mediaService struct {
	ma      repository.MediaAssetRepository
	storage ObjectStorage
	newID   func() (string, error)
}

func NewMediaService(ma repository.MediaAssetRepository, storage ObjectStorage) MediaService {
	return &mediaService{
		ma:      ma,
		storage: storage,
		newID:   func() (string, error) { return gonanoid.New() },
	}
}

func (s *mediaService) Upload(ctx context.Context, userID int64, data []byte) (*models.MediaAsset, error) {
	if len(data) == 0 {
		return nil, ErrEmptyUpload
	}
	if len(data) > MaxUploadSize {
		return nil, ErrUploadTooLarge
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == types.Unknown {
		return nil, ErrUnsupportedMedia
	}
	if _, ok := allowedMediaTypes[kind.Extension]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedia, kind.Extension)
	}

	id, err := s.newID()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	key := id + "." + kind.Extension

	url, err := s.storage.Upload(ctx, key, data, kind.MIME.Value)
	if err != nil {
		return nil, fmt.Errorf("upload media: %w", err)
	}

	asset := &models.MediaAsset{
		UserID:   userID,
		FileName: key,
		FileType: kind.MIME.Value,
		FileSize: int64(len(data)),
		FileURL:  url,
	}
	asset.ID, err = s.ma.Create(ctx, asset)
	if err != nil {
		return nil, err
	}
	return asset, nil
}

func (s *mediaService) List(ctx context.Context, userID int64) ([]*models.MediaAsset, error) {
	assets, err := s.ma.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if assets == nil {
		assets = []*models.MediaAsset{}
	}
	return assets, nil
}

func (s *mediaService) Remove(ctx context.Context, userID, id int64) error {
	asset, err := s.ma.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if asset == nil || asset.UserID != userID {
		return notFound("media asset", id)
	}

	if err := s.storage.Delete(ctx, asset.FileName); err != nil {
		slog.Warn("could not delete stored object", "key", asset.FileName, "error", err)
	}
	return s.ma.Remove(ctx, id)
}
