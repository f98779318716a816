package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	cfg "github.com/maheshrc27/campaignflow/configs"
)

var ErrStorageNotConfigured = errors.New("media storage is not configured")

// ObjectStorage stores uploaded media and returns its public URL.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, file []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

type R2Service struct {
	config cfg.R2
	client *s3.Client
}

// NewR2Service builds the S3 client for Cloudflare R2. Without credentials the
// service is returned unconfigured and every call fails with ErrStorageNotConfigured.
func NewR2Service(ctx context.Context, r2 cfg.R2) (*R2Service, error) {
	s := &R2Service{config: r2}
	if r2.AccountID == "" || r2.AccessKey == "" || r2.BucketName == "" {
		slog.Warn("R2 credentials missing; media uploads disabled")
		return s, nil
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(r2.AccessKey, r2.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("load r2 config: %w", err)
	}

	s.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", r2.AccountID))
	})
	return s, nil
}

func (r *R2Service) Configured() bool {
	return r.client != nil
}

func (r *R2Service) Upload(ctx context.Context, key string, file []byte, contentType string) (string, error) {
	if r.client == nil {
		return "", ErrStorageNotConfigured
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(r.config.BucketName),
		Key:           aws.String(key),
		Body:          bytes.NewReader(file),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(file))),
	}

	if _, err := r.client.PutObject(ctx, input); err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return r.config.PublicURL + "/" + key, nil
}

func (r *R2Service) Delete(ctx context.Context, key string) error {
	if r.client == nil {
		return ErrStorageNotConfigured
	}

	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.config.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
