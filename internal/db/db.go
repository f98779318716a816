package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, uri string) (*sql.DB, error) {
	if uri == "" {
		return nil, fmt.Errorf("POSTGRES_URI is not set")
	}

	db, err := sql.Open("postgres", uri)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database is unreachable: %w", err)
	}

	return db, nil
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	migrations := []string{
		migrationUsers,
		migrationApiKeys,
		migrationCampaigns,
		migrationPosts,
		migrationSubscribers,
		migrationMediaAssets,
		migrationDispatchHistory,
		migrationIndexes,
	}

	for i, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

const migrationUsers = `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	google_id TEXT NOT NULL DEFAULT '',
	email TEXT UNIQUE NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	profile_picture TEXT NOT NULL DEFAULT '',
	last_login_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const migrationApiKeys = `
CREATE TABLE IF NOT EXISTS api_keys (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	label TEXT NOT NULL DEFAULT '',
	key_hash TEXT UNIQUE NOT NULL,
	key_hint TEXT NOT NULL DEFAULT '',
	last_used_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const migrationCampaigns = `
CREATE TABLE IF NOT EXISTS campaigns (
	id BIGSERIAL PRIMARY KEY,
	subject TEXT NOT NULL,
	content TEXT NOT NULL DEFAULT '',
	preview_text TEXT NOT NULL DEFAULT '',
	email_type TEXT NOT NULL DEFAULT 'newsletter',
	content_title TEXT NOT NULL DEFAULT '',
	content_url TEXT NOT NULL DEFAULT '',
	content_description TEXT NOT NULL DEFAULT '',
	content_type TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'draft',
	scheduled_at TIMESTAMPTZ,
	sent_at TIMESTAMPTZ,
	retry_count INT NOT NULL DEFAULT 0,
	max_retries INT NOT NULL DEFAULT 3,
	last_retry_at TIMESTAMPTZ,
	failure_reason TEXT,
	external_email_id TEXT NOT NULL DEFAULT '',
	total_recipients INT NOT NULL DEFAULT 0,
	total_sent INT NOT NULL DEFAULT 0,
	total_delivered INT NOT NULL DEFAULT 0,
	total_opened INT NOT NULL DEFAULT 0,
	total_clicked INT NOT NULL DEFAULT 0,
	total_bounced INT NOT NULL DEFAULT 0,
	total_unsubscribed INT NOT NULL DEFAULT 0,
	created_by BIGINT REFERENCES users(id) ON DELETE SET NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CHECK (retry_count <= max_retries)
)`

const migrationPosts = `
CREATE TABLE IF NOT EXISTS posts (
	id BIGSERIAL PRIMARY KEY,
	content TEXT NOT NULL,
	media_urls TEXT[] NOT NULL DEFAULT '{}',
	platform TEXT NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}',
	status TEXT NOT NULL DEFAULT 'draft',
	scheduled_at TIMESTAMPTZ,
	published_at TIMESTAMPTZ,
	retry_count INT NOT NULL DEFAULT 0,
	max_retries INT NOT NULL DEFAULT 3,
	last_retry_at TIMESTAMPTZ,
	failure_reason TEXT,
	external_post_id TEXT NOT NULL DEFAULT '',
	post_url TEXT NOT NULL DEFAULT '',
	likes INT NOT NULL DEFAULT 0,
	shares INT NOT NULL DEFAULT 0,
	comments INT NOT NULL DEFAULT 0,
	impressions INT NOT NULL DEFAULT 0,
	metrics_updated_at TIMESTAMPTZ,
	created_by BIGINT REFERENCES users(id) ON DELETE SET NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CHECK (retry_count <= max_retries)
)`

const migrationSubscribers = `
CREATE TABLE IF NOT EXISTS subscribers (
	id BIGSERIAL PRIMARY KEY,
	email TEXT UNIQUE NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	unsubscribe_token TEXT NOT NULL DEFAULT '',
	subscribed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	unsubscribed_at TIMESTAMPTZ
)`

const migrationMediaAssets = `
CREATE TABLE IF NOT EXISTS media_assets (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT REFERENCES users(id) ON DELETE SET NULL,
	file_name TEXT NOT NULL,
	file_type TEXT NOT NULL,
	file_size BIGINT NOT NULL DEFAULT 0,
	file_url TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const migrationDispatchHistory = `
CREATE TABLE IF NOT EXISTS dispatch_history (
	id BIGSERIAL PRIMARY KEY,
	kind TEXT NOT NULL,
	item_id BIGINT NOT NULL,
	succeeded BOOLEAN NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	recipients INT NOT NULL DEFAULT 0,
	sent INT NOT NULL DEFAULT 0,
	failed INT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const migrationIndexes = `
CREATE INDEX IF NOT EXISTS idx_campaigns_due ON campaigns (status, scheduled_at);
CREATE INDEX IF NOT EXISTS idx_posts_due ON posts (status, scheduled_at);
CREATE INDEX IF NOT EXISTS idx_subscribers_active ON subscribers (is_active);
CREATE INDEX IF NOT EXISTS idx_dispatch_history_item ON dispatch_history (kind, item_id)`
