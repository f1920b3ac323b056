// Package config provides configuration management for the deadline tracker.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Scraper  ScraperConfig
	Notifier NotifierConfig
	Worker   WorkerConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	Redis      RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// ClickHouseConfig holds ClickHouse configuration for the scrape log stream
type ClickHouseConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// CacheConfig holds deadline-record cache configuration
type CacheConfig struct {
	TTL time.Duration
}

// ScraperConfig holds observation source (scraper service) configuration
type ScraperConfig struct {
	BaseURL           string
	APIKey            string
	RequestTimeout    time.Duration
	RequestsPerSecond float64
}

// NotifierConfig holds notification service configuration
type NotifierConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	MaxRetries     int
}

// WorkerConfig holds scrape worker configuration
type WorkerConfig struct {
	Schedule    string // cron expression for scheduled runs
	Concurrency int    // colleges processed in parallel per run
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// .env file is optional - environment variables can be set directly
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "deadline_tracker"),
				User:           getEnv("POSTGRES_USER", "tracker"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 50),
			},
			ClickHouse: ClickHouseConfig{
				Host:     getEnv("CLICKHOUSE_HOST", "localhost"),
				Port:     getEnv("CLICKHOUSE_PORT", "9000"),
				Database: getEnv("CLICKHOUSE_DB", "deadline_tracker"),
				User:     getEnv("CLICKHOUSE_USER", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 50),
			},
		},
		Cache: CacheConfig{
			TTL: getEnvAsDuration("CACHE_TTL", 10*time.Minute),
		},
		Scraper: ScraperConfig{
			BaseURL:           getEnv("SCRAPER_BASE_URL", "http://localhost:9100"),
			APIKey:            getEnv("SCRAPER_API_KEY", ""),
			RequestTimeout:    getEnvAsDuration("SCRAPER_REQUEST_TIMEOUT", 90*time.Second),
			RequestsPerSecond: getEnvAsFloat("SCRAPER_REQUESTS_PER_SECOND", 0.5),
		},
		Notifier: NotifierConfig{
			BaseURL:        getEnv("NOTIFIER_BASE_URL", "http://localhost:9200"),
			RequestTimeout: getEnvAsDuration("NOTIFIER_REQUEST_TIMEOUT", 10*time.Second),
			MaxRetries:     getEnvAsInt("NOTIFIER_MAX_RETRIES", 3),
		},
		Worker: WorkerConfig{
			Schedule:    getEnv("WORKER_SCHEDULE", "0 4 * * *"),
			Concurrency: getEnvAsInt("WORKER_CONCURRENCY", 1),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if config.Scraper.RequestsPerSecond <= 0 {
		return nil, fmt.Errorf("SCRAPER_REQUESTS_PER_SECOND must be positive")
	}
	if config.Worker.Concurrency < 1 {
		return nil, fmt.Errorf("WORKER_CONCURRENCY must be at least 1")
	}

	return config, nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
