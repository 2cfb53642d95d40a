package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/maestroapp/maestro/pkg/audit"
	"github.com/maestroapp/maestro/pkg/config"
	"github.com/maestroapp/maestro/pkg/observability"
	"github.com/maestroapp/maestro/pkg/storage/postgres"
)

// lockTTL bounds how long the janitor holds the retention lock. A crashed run
// frees the lock after the TTL instead of blocking cleanup forever.
const lockTTL = 2 * time.Hour

var (
	schedule = flag.String("schedule", "0 3 * * *", "Cron schedule for the retention run (default: 03:00 UTC)")
	runOnce  = flag.Bool("once", false, "Run retention once and exit")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithField("version", observability.Version).Info("Starting maestro-janitor")

	cm, err := postgres.NewConnectionManager(postgres.ConnectionConfig{
		PrimaryURL: cfg.Storage.PostgresURL,
		MaxConns:   cfg.Storage.PostgresMaxConns,
		MinConns:   cfg.Storage.PostgresMinConns,
		Timeout:    cfg.Storage.PostgresTimeout,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to PostgreSQL")
		os.Exit(1)
	}
	defer cm.Close()

	var redisClient *postgres.RedisClient
	if cfg.Storage.RedisURL != "" {
		redisClient, err = postgres.NewRedisClient(cfg.Storage)
		if err != nil {
			logger.WithError(err).Error("Failed to connect to Redis")
			os.Exit(1)
		}
		defer redisClient.Close()
	}

	var archiver audit.Archiver
	if cfg.Audit.ArchiveEnabled {
		s3Client, err := postgres.NewS3Client(cfg.Storage)
		if err != nil {
			logger.WithError(err).Error("Failed to connect to S3")
			os.Exit(1)
		}
		archiver = audit.NewS3Archiver(s3Client, "")
	}

	service := audit.NewService(audit.NewStore(cm.Primary(), cm.Replica()))
	policy := audit.RetentionPolicy{
		Days:    cfg.Audit.RetentionDays,
		Archive: cfg.Audit.ArchiveEnabled,
	}

	run := func() {
		runRetention(logger, redisClient, service, policy, archiver)
	}

	if *runOnce {
		run()
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(*schedule, run); err != nil {
		logger.WithError(err).Errorf("Failed to schedule retention run %q", *schedule)
		os.Exit(1)
	}
	c.Start()
	logger.WithField("schedule", *schedule).Info("Retention scheduler started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutting down")

	// Let an in-flight run finish
	<-c.Stop().Done()
	logger.Info("Janitor stopped")
}

// runRetention performs one cleanup run. When Redis is configured the run is
// guarded by a distributed lock so only one janitor instance cleans at a time.
func runRetention(logger *observability.Logger, redisClient *postgres.RedisClient, service *audit.Service, policy audit.RetentionPolicy, archiver audit.Archiver) {
	ctx, cancel := context.WithTimeout(context.Background(), lockTTL)
	defer cancel()

	if redisClient != nil {
		acquired, err := redisClient.AcquireLock(ctx, "audit-retention", lockTTL)
		if err != nil {
			logger.WithError(err).Error("Failed to acquire retention lock")
			return
		}
		if !acquired {
			logger.Info("Retention lock held elsewhere, skipping run")
			return
		}
		defer func() {
			if err := redisClient.ReleaseLock(context.Background(), "audit-retention"); err != nil {
				logger.WithError(err).Warn("Failed to release retention lock")
			}
		}()
	}

	logger.WithFields(map[string]interface{}{
		"retention_days": policy.Days,
		"archive":        policy.Archive,
	}).Info("Starting retention run")

	result, err := service.Cleanup(ctx, policy, archiver)
	if err != nil {
		logger.WithError(err).Error("Retention run failed")
		return
	}

	logger.WithFields(map[string]interface{}{
		"cutoff":   result.Cutoff.Format(time.RFC3339),
		"archived": result.Archived,
		"deleted":  result.Deleted,
	}).Info("Retention run completed")
}
