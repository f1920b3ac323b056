// Package main provides a CLI tool for running database migrations.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/deadline-tracker/internal/config"
	"github.com/deadline-tracker/internal/storage"
)

func main() {
	var (
		action = flag.String("action", "up", "Migration action: up, down, version")
		path   = flag.String("path", "migrations", "Path to migration files")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := runPostgresMigrations(cfg, *action, *path); err != nil {
		log.Fatalf("Postgres migration failed: %v", err)
	}

	// The scrape log stream lives in ClickHouse and is created in place;
	// golang-migrate only manages the Postgres schema.
	if *action == "up" {
		if err := ensureClickHouseSchema(cfg); err != nil {
			log.Fatalf("ClickHouse schema setup failed: %v", err)
		}
	}
}

func runPostgresMigrations(cfg *config.Config, action, path string) error {
	databaseURL := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.Database.Postgres.User,
		cfg.Database.Postgres.Password,
		cfg.Database.Postgres.Host,
		cfg.Database.Postgres.Port,
		cfg.Database.Postgres.Database,
	)

	switch action {
	case "up":
		log.Println("Running Postgres migrations...")
		if err := storage.RunMigrations(databaseURL, path); err != nil {
			return err
		}
		log.Println("Postgres migrations completed successfully")

	case "down":
		log.Println("Rolling back Postgres migration...")
		if err := storage.RollbackMigrations(databaseURL, path); err != nil {
			return err
		}
		log.Println("Postgres migration rolled back successfully")

	case "version":
		version, dirty, err := storage.MigrationVersion(databaseURL, path)
		if err != nil {
			return err
		}
		log.Printf("Current Postgres migration version: %d (dirty: %v)", version, dirty)

	default:
		return fmt.Errorf("unknown action: %s", action)
	}

	return nil
}

func ensureClickHouseSchema(cfg *config.Config) error {
	clickhouse, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
	if err != nil {
		return err
	}
	defer clickhouse.Close()

	log.Println("Ensuring ClickHouse scrape log schema...")
	if err := clickhouse.EnsureScrapeLogSchema(context.Background()); err != nil {
		return err
	}
	log.Println("ClickHouse schema ready")

	return nil
}
