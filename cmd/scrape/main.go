// Package main provides a CLI tool for running scrape passes outside the
// scheduled worker, for one college or the full roster.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/deadline-tracker/internal/adapter"
	"github.com/deadline-tracker/internal/config"
	"github.com/deadline-tracker/internal/logging"
	"github.com/deadline-tracker/internal/service"
	"github.com/deadline-tracker/internal/storage"
	"github.com/deadline-tracker/internal/worker"
)

func main() {
	var (
		collegeID   = flag.String("college", "", "Scrape a single college by id (default: full roster)")
		concurrency = flag.Int("concurrency", 0, "Pool size for the run (default: worker config)")
		timeout     = flag.Duration("timeout", 30*time.Minute, "Overall run timeout")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Error("Failed to load configuration: " + err.Error())
		os.Exit(1)
	}

	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger()

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	clickhouse, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to ClickHouse")
	}
	defer clickhouse.Close()

	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redis.Close()

	collegeRepo := storage.NewCollegeRepository(postgres)
	yearRepo := storage.NewDeadlineYearRepository(postgres)
	instanceRepo := storage.NewDeadlineInstanceRepository(postgres)
	applicationRepo := storage.NewApplicationRepository(postgres)
	reviewRepo := storage.NewManualReviewRepository(postgres)
	scrapeLogRepo := storage.NewScrapeLogRepository(clickhouse)
	reconciliationStore := storage.NewReconciliationStore(postgres, yearRepo, collegeRepo)
	cacheService := storage.NewCacheService(redis, cfg.Cache.TTL)

	reconciliationService := service.NewReconciliationService(
		collegeRepo, yearRepo, reconciliationStore, scrapeLogRepo,
		reviewRepo, applicationRepo, cacheService, adapter.NewNotifierClient(&cfg.Notifier),
	)

	poolSize := cfg.Worker.Concurrency
	if *concurrency > 0 {
		poolSize = *concurrency
	}

	scrapeWorker, err := worker.NewScrapeWorker(&worker.ScrapeWorkerConfig{
		Colleges:    collegeRepo,
		Source:      adapter.NewScraperClient(&cfg.Scraper),
		Reconciler:  reconciliationService,
		Sweeper:     instanceRepo,
		Schedule:    cfg.Worker.Schedule,
		Concurrency: poolSize,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create scrape worker")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *collegeID != "" {
		result, err := scrapeWorker.RunCollege(ctx, *collegeID)
		if err != nil {
			logger.WithError(err).Fatal("Scrape run failed")
		}
		logger.WithFields(map[string]interface{}{
			"collegeId": *collegeID,
			"success":   result.Success,
			"changes":   len(result.Changes),
			"escalated": result.Escalated,
		}).Info("Scrape run finished")
		return
	}

	stats, err := scrapeWorker.RunOnce(ctx)
	if err != nil {
		logger.WithError(err).Fatal("Scrape run failed")
	}
	logger.WithFields(map[string]interface{}{
		"attempted": stats.CollegesAttempted,
		"succeeded": stats.ScrapesSucceeded,
		"failed":    stats.ScrapesFailed,
		"changes":   stats.ChangesDetected,
		"escalated": stats.CollegesEscalated,
	}).Info("Scrape run finished")
}
