// Command sweeper runs a single deadline sweep and exits. It suits
// deployments that schedule maintenance outside the API process.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/syncmind/syncmind-api/internal/config"
	"github.com/syncmind/syncmind-api/internal/database"
	"github.com/syncmind/syncmind-api/internal/repository"
	"github.com/syncmind/syncmind-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "sweeper").Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	feed := service.NewChangeFeed(nil, cfg.RedisChannel, nil, logger)
	if cfg.RedisURL != "" {
		redisClient, err := database.ConnectRedis(cfg.RedisURL, cfg.AppName+"-sweeper")
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable; connected clients will not be notified")
		} else {
			defer redisClient.Close()
			feed = service.NewChangeFeed(redisClient, cfg.RedisChannel, nil, logger)
		}
	}

	repos := repository.NewRepositories(db)
	activity := service.NewActivityService(repos.Activity, validator.New(validator.WithRequiredStructEnabled()), logger)
	sweeper := service.NewSweepService(repos, repository.NewTransactor(db), feed, activity, logger)

	result, err := sweeper.SweepOverdue(ctx, time.Now())
	if err != nil {
		logger.Error().Err(err).Msg("deadline sweep failed")
		os.Exit(1)
	}

	logger.Info().Int("expired", len(result.UpdatedIDs)).Time("swept_at", result.SweptAt).Msg("deadline sweep finished")
}
