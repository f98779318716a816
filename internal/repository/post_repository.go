package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/campaignflow/internal/models"
)

type PostRepository interface {
	Create(ctx context.Context, post *models.Post) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	List(ctx context.Context, status, platform string, limit, offset int) ([]*models.Post, error)
	UpdateDraft(ctx context.Context, post *models.Post) (bool, error)
	MarkPublished(ctx context.Context, id int64, externalID, postURL string, at time.Time) error
	UpdateMetrics(ctx context.Context, id int64, likes, shares, comments, impressions int, at time.Time) error
	Remove(ctx context.Context, id int64) (bool, error)
	DispatchStore
}

type postRepository struct {
	dispatchStore
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{dispatchStore{db: db, table: "posts", inFlight: models.PostStatusPublishing}}
}

const postColumns = `id, content, media_urls, platform, metadata, status, scheduled_at, published_at,
	retry_count, max_retries, last_retry_at, COALESCE(failure_reason, ''), external_post_id, post_url,
	likes, shares, comments, impressions, metrics_updated_at, COALESCE(created_by, 0), created_at, updated_at`

func scanPost(row interface{ Scan(...any) error }) (*models.Post, error) {
	var p models.Post
	err := row.Scan(&p.ID, &p.Content, &p.MediaURLs, &p.Platform, &p.Metadata, &p.Status, &p.ScheduledAt,
		&p.PublishedAt, &p.RetryCount, &p.MaxRetries, &p.LastRetryAt, &p.FailureReason, &p.ExternalPostID,
		&p.PostURL, &p.Likes, &p.Shares, &p.Comments, &p.Impressions, &p.MetricsUpdatedAt, &p.CreatedBy,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (content, media_urls, platform, metadata, status, max_retries, created_by)
		VALUES ($1, $2, $3, $4, 'draft', $5, NULLIF($6, 0))
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, post.Content, post.MediaURLs, post.Platform, post.Metadata,
		post.MaxRetries, post.CreatedBy).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *postRepository) List(ctx context.Context, status, platform string, limit, offset int) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE ($1 = '' OR status = $1) AND ($2 = '' OR platform = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	rows, err := r.db.QueryContext(ctx, query, status, platform, limit, offset)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (r *postRepository) UpdateDraft(ctx context.Context, post *models.Post) (bool, error) {
	query := `
		UPDATE posts
		SET content = $2,
			media_urls = $3,
			platform = $4,
			metadata = $5,
			max_retries = $6,
			updated_at = NOW()
		WHERE id = $1 AND status = 'draft' AND retry_count <= $6
	`
	return r.exec(ctx, query, post.ID, post.Content, post.MediaURLs, post.Platform, post.Metadata, post.MaxRetries)
}

func (r *postRepository) MarkPublished(ctx context.Context, id int64, externalID, postURL string, at time.Time) error {
	query := `
		UPDATE posts
		SET status = 'published',
			external_post_id = $2,
			post_url = $3,
			published_at = $4,
			failure_reason = NULL,
			updated_at = NOW()
		WHERE id = $1 AND status = 'publishing'
	`
	ok, err := r.exec(ctx, query, id, externalID, postURL, at)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("post %d: %w", id, ErrNotInFlight)
	}
	return nil
}

func (r *postRepository) UpdateMetrics(ctx context.Context, id int64, likes, shares, comments, impressions int, at time.Time) error {
	query := `
		UPDATE posts
		SET likes = $2, shares = $3, comments = $4, impressions = $5, metrics_updated_at = $6
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, likes, shares, comments, impressions, at)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) Remove(ctx context.Context, id int64) (bool, error) {
	return r.exec(ctx, `DELETE FROM posts WHERE id = $1 AND status <> 'publishing'`, id)
}
