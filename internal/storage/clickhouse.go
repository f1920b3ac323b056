package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/deadline-tracker/internal/config"
)

// ClickHouseDB wraps the ClickHouse connection used for the append-only
// scrape log stream.
type ClickHouseDB struct {
	conn driver.Conn
}

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(cfg *config.ClickHouseConfig) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:      10 * time.Second,
		MaxOpenConns:     10,
		MaxIdleConns:     5,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseDB{conn: conn}, nil
}

// Close closes the ClickHouse connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Conn returns the underlying ClickHouse connection
func (db *ClickHouseDB) Conn() driver.Conn {
	return db.conn
}

// Ping checks if the database is reachable
func (db *ClickHouseDB) Ping(ctx context.Context) error {
	return db.conn.Ping(ctx)
}

// Exec executes a query without returning rows
func (db *ClickHouseDB) Exec(ctx context.Context, query string, args ...interface{}) error {
	return db.conn.Exec(ctx, query, args...)
}

// EnsureScrapeLogSchema creates the scrape log table if it does not exist.
// ClickHouse sits outside the golang-migrate flow; the one table it holds is
// created here on startup.
func (db *ClickHouseDB) EnsureScrapeLogSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS scrape_logs (
			college_id        String,
			started_at        DateTime64(3, 'UTC'),
			finished_at       DateTime64(3, 'UTC'),
			success           Bool,
			deadlines_found   Int32,
			changes_detected  Int32,
			error             String,
			confidence_score  Float64,
			extraction_method String,
			duration_ms       Int64
		)
		ENGINE = MergeTree()
		ORDER BY (college_id, started_at)
	`
	if err := db.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create scrape_logs table: %w", err)
	}
	return nil
}
