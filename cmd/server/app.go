package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	config "github.com/maheshrc27/campaignflow/configs"
	"github.com/maheshrc27/campaignflow/internal/db"
	"github.com/maheshrc27/campaignflow/internal/email"
	"github.com/maheshrc27/campaignflow/internal/metrics"
	"github.com/maheshrc27/campaignflow/internal/queue"
	"github.com/maheshrc27/campaignflow/internal/repository"
	"github.com/maheshrc27/campaignflow/internal/scheduler"
	"github.com/maheshrc27/campaignflow/internal/social"
	"github.com/maheshrc27/campaignflow/pkg/utils"
	"github.com/redis/go-redis/v9"
)

// application holds the long-lived collaborators shared by every command.
type application struct {
	db        *sql.DB
	redis     *redis.Client
	asynq     *asynq.Client
	redisOpt  asynq.RedisClientOpt
	metrics   *metrics.Metrics
	mail      *email.Service
	providers *social.Factory
	codec     *utils.UnsubscribeCodec

	users       repository.UserRepository
	keys        repository.ApiKeyRepository
	campaignsDB repository.CampaignRepository
	postsDB     repository.PostRepository
	subscribers repository.SubscriberRepository
	assets      repository.MediaAssetRepository
	history     repository.DispatchHistoryRepository

	campaigns *scheduler.Scheduler
	posts     *scheduler.Scheduler
}

func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	database, err := db.Open(ctx, cfg.PostgresURI)
	if err != nil {
		return nil, err
	}
	app := &application{db: database, metrics: metrics.New()}

	var locker scheduler.Locker
	var notifier scheduler.Notifier
	if cfg.RedisURI != "" {
		opt, err := redisOptions(cfg.RedisURI)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.redis = redis.NewClient(opt)
		app.redisOpt = asynq.RedisClientOpt{Addr: opt.Addr, Username: opt.Username, Password: opt.Password, DB: opt.DB, TLSConfig: opt.TLSConfig}
		app.asynq = asynq.NewClient(app.redisOpt)
		locker = scheduler.NewRedisLocker(app.redis)
		notifier = queue.NewNotifier(app.asynq)
	} else {
		logger.Warn("REDIS_URI is not set; sweep locking and queued sweeps are disabled")
	}

	transport, err := email.NewTransport(cfg.Email, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.mail = email.NewService(transport, cfg.Email.From, cfg.Email.ReplyTo, logger)

	app.codec, err = utils.NewUnsubscribeCodec(cfg.UnsubscribeSecret)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("unsubscribe tokens: %w", err)
	}

	bulk := email.NewBulkSender(app.mail, email.BulkOptions{
		BatchSize:  cfg.Email.BatchSize,
		BatchDelay: cfg.Email.BatchDelay,
		SiteURL:    cfg.SiteURL,
		Tokens:     app.codec,
		Metrics:    app.metrics,
		Logger:     logger,
	})

	app.providers = social.NewFactory(cfg.Social, &http.Client{Timeout: 60 * time.Second})

	app.users = repository.NewUserRepository(database)
	app.keys = repository.NewApiKeyRepository(database)
	app.campaignsDB = repository.NewCampaignRepository(database)
	app.postsDB = repository.NewPostRepository(database)
	app.subscribers = repository.NewSubscriberRepository(database)
	app.assets = repository.NewMediaAssetRepository(database)
	app.history = repository.NewDispatchHistoryRepository(database)

	opts := scheduler.Options{
		Locker:   locker,
		History:  app.history,
		Notifier: notifier,
		Metrics:  app.metrics,
		Logger:   logger,
	}
	app.campaigns = scheduler.New(scheduler.CampaignKind, app.campaignsDB,
		scheduler.NewCampaignDispatcher(app.campaignsDB, app.subscribers, bulk, nil), opts)
	app.posts = scheduler.New(scheduler.PostKind, app.postsDB,
		scheduler.NewPostDispatcher(app.postsDB, app.providers, app.metrics, nil), opts)

	return app, nil
}

func (a *application) sweepers() map[string]queue.Sweeper {
	return map[string]queue.Sweeper{
		scheduler.CampaignKind.Name: a.campaigns,
		scheduler.PostKind.Name:     a.posts,
	}
}

func (a *application) Close() {
	if a.asynq != nil {
		if err := a.asynq.Close(); err != nil {
			slog.Warn("failed to close queue client", "error", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			slog.Warn("failed to close redis", "error", err)
		}
	}
	if err := a.db.Close(); err != nil {
		slog.Warn("failed to close database", "error", err)
	}
}

// redisOptions accepts either a redis:// URL or a bare host:port.
func redisOptions(uri string) (*redis.Options, error) {
	if strings.Contains(uri, "://") {
		return redis.ParseURL(uri)
	}
	return &redis.Options{Addr: uri}, nil
}
