package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/maheshrc27/campaignflow/internal/api/handlers"
	"github.com/maheshrc27/campaignflow/internal/api/middleware"
	"github.com/maheshrc27/campaignflow/internal/db"
	job "github.com/maheshrc27/campaignflow/internal/jobs"
	"github.com/maheshrc27/campaignflow/internal/queue"
	"github.com/maheshrc27/campaignflow/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron"
	"github.com/spf13/cobra"
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, periodic jobs and queue worker",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", true, "Apply the database schema before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	if migrateOnStart {
		if err := db.Migrate(ctx, app.db); err != nil {
			return err
		}
	}

	r2, err := service.NewR2Service(ctx, cfg.R2)
	if err != nil {
		return err
	}

	authService := service.NewAuthService(*cfg, app.users)
	userService := service.NewUserService(app.users)
	apiKeyService := service.NewApiKeyService(app.keys)
	campaignService := service.NewCampaignService(app.campaignsDB, app.campaigns)
	postService := service.NewPostService(app.postsDB, app.providers, app.posts)
	subscriberService := service.NewSubscriberService(app.subscribers, app.codec)
	mediaService := service.NewMediaService(app.assets, r2)
	historyService := service.NewHistoryService(app.history)

	server := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    20 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			logger.Error("unhandled request error", "path", c.Path(), "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	server.Use(recover.New())
	server.Use(fiberlogger.New())
	server.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	server.Get("/healthz", func(c *fiber.Ctx) error {
		if err := app.db.PingContext(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	server.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(app.metrics.Registry(), promhttp.HandlerOpts{})))

	auth := handlers.NewAuthHandler(*cfg, authService)
	server.Get("/login", auth.Login)
	server.Get("/login/callback", auth.LoginCallbackHandler)
	server.Post("/logout", auth.Logout)

	subscribers := handlers.NewSubscriberHandler(subscriberService)
	server.Post("/subscribe", subscribers.Subscribe)
	server.Get("/unsubscribe", subscribers.Unsubscribe)
	server.Post("/unsubscribe", subscribers.Unsubscribe)

	handlers.NewCronHandler(app.campaigns, app.posts).Register(server.Group("/api/cron", middleware.CronSecret(cfg.CronSecret)))

	api := server.Group("/api")
	api.Use(middleware.NewAuthMiddleware(*cfg, apiKeyService).Require())

	user := handlers.NewUserHandler(userService)
	api.Get("/user/info", user.GetUserInfo)
	api.Delete("/user", user.RemoveUser)

	apiKeys := handlers.NewApiKeyHandler(apiKeyService)
	api.Post("/api_keys", apiKeys.CreateApiKey)
	api.Get("/api_keys", apiKeys.ListKeys)
	api.Delete("/api_keys/:id", apiKeys.RemoveAPIKey)

	handlers.NewCampaignHandler(campaignService).Register(api)
	handlers.NewPostHandler(postService).Register(api)
	handlers.NewHistoryHandler(historyService).Register(api)

	api.Get("/subscribers", subscribers.ListSubscribers)

	media := handlers.NewMediaHandler(mediaService)
	api.Post("/media", media.UploadMedia)
	api.Get("/media", media.ListMedia)
	api.Delete("/media/:id", media.RemoveMedia)

	providers := handlers.NewProviderHandler(app.providers, app.mail.Configured)
	api.Get("/providers", providers.ListProviders)

	sweepJob := job.NewSweepJob(logger, cfg.StaleDispatchAfter, app.campaigns, app.posts)
	c := cron.New()
	if err := sweepJob.Register(c, cfg.SweepInterval); err != nil {
		return err
	}
	c.Start()
	defer c.Stop()

	var worker *asynq.Server
	if app.asynq != nil {
		worker = asynq.NewServer(app.redisOpt, asynq.Config{
			Concurrency: 2,
		})
		q := queue.NewQueue(logger, app.sweepers())
		if err := worker.Start(q.Mux()); err != nil {
			return err
		}
		logger.Info("queue worker started")
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", cfg.Port)
		errCh <- server.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	if worker != nil {
		worker.Shutdown()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server shutdown complete")
	return nil
}
