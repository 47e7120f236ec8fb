package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/syncmind/syncmind-api/internal/badge"
	"github.com/syncmind/syncmind-api/internal/config"
	"github.com/syncmind/syncmind-api/internal/database"
	"github.com/syncmind/syncmind-api/internal/handler"
	"github.com/syncmind/syncmind-api/internal/middleware"
	"github.com/syncmind/syncmind-api/internal/repository"
	"github.com/syncmind/syncmind-api/internal/retry"
	"github.com/syncmind/syncmind-api/internal/router"
	"github.com/syncmind/syncmind-api/internal/scheduler"
	"github.com/syncmind/syncmind-api/internal/service"
	cloud "github.com/syncmind/syncmind-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("%v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL, cfg.AppName+"-api")
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis not configured; progress cache and cross-node relay disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	var storage service.ResourceStorage
	cloudCfg := cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}
	if cloudCfg.Configured() {
		store, err := cloud.New(cloudCfg, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		storage = store
	} else {
		logger.Warn().Msg("cloudinary not configured; resource uploads disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	policy := retry.Policy{
		Attempts: cfg.RetryAttempts,
		Delay:    cfg.RetryDelay,
		OnRetry: func(err error, wait time.Duration) {
			logger.Warn().Err(err).Dur("wait", wait).Msg("retrying remote read")
		},
	}

	repos := repository.NewRepositories(db)
	tx := repository.NewTransactor(db)

	var locker badge.Locker
	if redisClient != nil {
		locker = badge.NewRedisLocker(redisClient, cfg.BadgeLockTTL)
	}
	gate := service.NewLedgerGate(badge.NewLedger(logger), locker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := service.NewChangeFeed(redisClient, cfg.RedisChannel, natsConn, logger)
	activityService := service.NewActivityService(repos.Activity, validate, logger)
	progressService := service.NewProgressService(repos, redisClient, cfg.ProgressCacheTTL, policy, logger)
	feed.OnChange(progressService.Invalidate)
	feed.Start(ctx)

	accountService := service.NewAccountService(repos, tx, feed, activityService, validate, service.TokenConfig{
		Secret: cfg.JWTSecret,
		TTL:    cfg.JWTTTL,
	}, policy, logger)
	assignmentService := service.NewAssignmentService(repos, tx, gate, feed, activityService, validate, policy, logger)
	badgeService := service.NewBadgeService(repos, tx, gate, feed, activityService, policy, logger)
	trialExamService := service.NewTrialExamService(repos, feed, activityService, validate, policy, logger)
	sweepService := service.NewSweepService(repos, tx, feed, activityService, logger)
	uploadService := service.NewUploadService(storage, activityService, cfg.UploadMaxSizeMB, logger)

	jobs := scheduler.New(logger)
	if _, err := jobs.Register(cfg.SweepSchedule, "deadline-sweep", func(ctx context.Context) error {
		_, err := sweepService.SweepOverdue(ctx, time.Now())
		return err
	}); err != nil {
		log.Fatalf("failed to schedule deadline sweep: %v", err)
	}
	jobs.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSOrigins})
	router.Register(app, cfg, router.Dependencies{
		AccountHandler:    handler.NewAccountHandler(accountService, validate, logger),
		AssignmentHandler: handler.NewAssignmentHandler(assignmentService, validate, logger),
		BadgeHandler:      handler.NewBadgeHandler(badgeService, logger),
		TrialExamHandler:  handler.NewTrialExamHandler(trialExamService, logger),
		ProgressHandler:   handler.NewProgressHandler(progressService, logger),
		EventHandler:      handler.NewEventHandler(feed, cfg.EventKeepAlive, logger),
		UploadHandler:     handler.NewUploadHandler(uploadService, logger),
		ActivityHandler:   handler.NewActivityHandler(activityService, logger),
		Readiness:         handler.ReadinessCheck(cfg, db, redisClient),
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, jobs, cancel)
}

func waitForShutdown(app *fiber.App, jobs *scheduler.Scheduler, stopBackground context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	jobs.Stop(ctx)
	stopBackground()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
