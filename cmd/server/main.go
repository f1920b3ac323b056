// Package main provides the API server entry point for the deadline tracker service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deadline-tracker/internal/adapter"
	"github.com/deadline-tracker/internal/api"
	"github.com/deadline-tracker/internal/config"
	"github.com/deadline-tracker/internal/logging"
	"github.com/deadline-tracker/internal/service"
	"github.com/deadline-tracker/internal/storage"
	"github.com/deadline-tracker/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Error("Failed to load configuration: " + err.Error())
		os.Exit(1)
	}

	// Initialize structured logging
	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	// Initialize database connections
	logger.Info("Connecting to databases...")

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

	logger.Info("Database connections established")

	ctx := context.Background()
	if err := clickhouse.EnsureScrapeLogSchema(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to ensure scrape log schema")
	}

	// Repositories
	collegeRepo := storage.NewCollegeRepository(postgres)
	yearRepo := storage.NewDeadlineYearRepository(postgres)
	instanceRepo := storage.NewDeadlineInstanceRepository(postgres)
	applicationRepo := storage.NewApplicationRepository(postgres)
	reviewRepo := storage.NewManualReviewRepository(postgres)
	scrapeLogRepo := storage.NewScrapeLogRepository(clickhouse)
	reconciliationStore := storage.NewReconciliationStore(postgres, yearRepo, collegeRepo)
	cacheService := storage.NewCacheService(redis, cfg.Cache.TTL)

	// Upstream clients
	scraperClient := adapter.NewScraperClient(&cfg.Scraper)
	notifierClient := adapter.NewNotifierClient(&cfg.Notifier)

	// Services
	reconciliationService := service.NewReconciliationService(
		collegeRepo, yearRepo, reconciliationStore, scrapeLogRepo,
		reviewRepo, applicationRepo, cacheService, notifierClient,
	)
	populationService := service.NewPopulationService(
		collegeRepo, yearRepo, instanceRepo, cacheService,
	)

	// Scrape worker
	scrapeWorker, err := worker.NewScrapeWorker(&worker.ScrapeWorkerConfig{
		Colleges:    collegeRepo,
		Source:      scraperClient,
		Reconciler:  reconciliationService,
		Sweeper:     instanceRepo,
		Schedule:    cfg.Worker.Schedule,
		Concurrency: cfg.Worker.Concurrency,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create scrape worker")
	}

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	if err := scrapeWorker.Start(workerCtx); err != nil {
		logger.WithError(err).Fatal("Failed to start scrape worker")
	}

	// HTTP server
	server := api.NewServer(
		&api.ServerConfig{
			Host:            cfg.Server.Host,
			Port:            cfg.Server.Port,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    120 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		collegeRepo, yearRepo, applicationRepo, reviewRepo,
		instanceRepo, scrapeLogRepo,
		populationService, scrapeWorker, scraperClient,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.WithField("signal", sig.String()).Info("Shutdown signal received")
	case err := <-errCh:
		logger.WithError(err).Error("API server stopped unexpectedly")
	}

	// Graceful shutdown: stop the worker first so no reconciliation is cut off
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := scrapeWorker.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to stop scrape worker cleanly")
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to shut down API server cleanly")
	}

	logger.Info("Shutdown complete")
}
