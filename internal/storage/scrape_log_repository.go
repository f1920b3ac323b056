package storage

import (
	"context"
	"fmt"

	"github.com/deadline-tracker/internal/models"
)

// ScrapeLogRepository appends scrape attempt rows to the ClickHouse audit
// stream. Rows are never updated or deleted.
type ScrapeLogRepository struct {
	db *ClickHouseDB
}

// NewScrapeLogRepository creates a new scrape log repository
func NewScrapeLogRepository(db *ClickHouseDB) *ScrapeLogRepository {
	return &ScrapeLogRepository{db: db}
}

// Append writes one scrape attempt row
func (r *ScrapeLogRepository) Append(ctx context.Context, entry *models.ScrapeLogEntry) error {
	query := `
		INSERT INTO scrape_logs (
			college_id, started_at, finished_at, success,
			deadlines_found, changes_detected, error,
			confidence_score, extraction_method, duration_ms
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := r.db.Exec(ctx, query,
		entry.CollegeID,
		entry.StartedAt,
		entry.FinishedAt,
		entry.Success,
		entry.DeadlinesFound,
		entry.ChangesDetected,
		entry.Error,
		entry.ConfidenceScore,
		entry.ExtractionMethod,
		entry.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("failed to append scrape log entry: %w", err)
	}

	return nil
}

// RecentByCollege retrieves recent scrape attempts for a college, newest first
func (r *ScrapeLogRepository) RecentByCollege(ctx context.Context, collegeID string, limit int) ([]*models.ScrapeLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT college_id, started_at, finished_at, success,
			   deadlines_found, changes_detected, error,
			   confidence_score, extraction_method, duration_ms
		FROM scrape_logs
		WHERE college_id = ?
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := r.db.Conn().Query(ctx, query, collegeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scrape logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*models.ScrapeLogEntry
	for rows.Next() {
		var entry models.ScrapeLogEntry
		err := rows.Scan(
			&entry.CollegeID,
			&entry.StartedAt,
			&entry.FinishedAt,
			&entry.Success,
			&entry.DeadlinesFound,
			&entry.ChangesDetected,
			&entry.Error,
			&entry.ConfidenceScore,
			&entry.ExtractionMethod,
			&entry.DurationMs,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scrape log entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	return entries, nil
}
