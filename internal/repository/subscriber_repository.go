package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/campaignflow/internal/models"
)

type SubscriberRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.Subscriber, error)
	ListActive(ctx context.Context) ([]*models.Subscriber, error)
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*models.Subscriber, error)
	Upsert(ctx context.Context, email, name, token string) (*models.Subscriber, error)
	Deactivate(ctx context.Context, email string) (bool, error)
	CountActive(ctx context.Context) (int, error)
}

type subscriberRepository struct {
	db *sql.DB
}

func NewSubscriberRepository(db *sql.DB) SubscriberRepository {
	return &subscriberRepository{db: db}
}

const subscriberColumns = `id, email, name, is_active, unsubscribe_token, subscribed_at, unsubscribed_at`

func scanSubscriber(row interface{ Scan(...any) error }) (*models.Subscriber, error) {
	var s models.Subscriber
	if err := row.Scan(&s.ID, &s.Email, &s.Name, &s.IsActive, &s.UnsubscribeToken, &s.SubscribedAt, &s.UnsubscribedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *subscriberRepository) GetByEmail(ctx context.Context, email string) (*models.Subscriber, error) {
	query := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE email = $1`
	s, err := scanSubscriber(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return s, nil
}

func (r *subscriberRepository) ListActive(ctx context.Context) ([]*models.Subscriber, error) {
	return r.list(ctx, `SELECT `+subscriberColumns+` FROM subscribers WHERE is_active = TRUE ORDER BY id`)
}

func (r *subscriberRepository) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*models.Subscriber, error) {
	query := `SELECT ` + subscriberColumns + ` FROM subscribers
		WHERE (NOT $1 OR is_active = TRUE)
		ORDER BY subscribed_at DESC
		LIMIT $2 OFFSET $3`
	return r.list(ctx, query, activeOnly, limit, offset)
}

func (r *subscriberRepository) list(ctx context.Context, query string, args ...any) ([]*models.Subscriber, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var subscribers []*models.Subscriber
	for rows.Next() {
		s, err := scanSubscriber(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		subscribers = append(subscribers, s)
	}
	return subscribers, rows.Err()
}

// Upsert creates a subscriber or reactivates an existing one with a fresh token.
func (r *subscriberRepository) Upsert(ctx context.Context, email, name, token string) (*models.Subscriber, error) {
	query := `
		INSERT INTO subscribers (email, name, is_active, unsubscribe_token)
		VALUES ($1, $2, TRUE, $3)
		ON CONFLICT (email) DO UPDATE
		SET name = CASE WHEN EXCLUDED.name = '' THEN subscribers.name ELSE EXCLUDED.name END,
			is_active = TRUE,
			unsubscribe_token = EXCLUDED.unsubscribe_token,
			subscribed_at = CASE WHEN subscribers.is_active THEN subscribers.subscribed_at ELSE NOW() END,
			unsubscribed_at = NULL
		RETURNING ` + subscriberColumns

	s, err := scanSubscriber(r.db.QueryRowContext(ctx, query, email, name, token))
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return s, nil
}

func (r *subscriberRepository) Deactivate(ctx context.Context, email string) (bool, error) {
	query := `UPDATE subscribers SET is_active = FALSE, unsubscribed_at = NOW() WHERE email = $1 AND is_active = TRUE`
	result, err := r.db.ExecContext(ctx, query, email)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *subscriberRepository) CountActive(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM subscribers WHERE is_active = TRUE`).Scan(&n); err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return n, nil
}
