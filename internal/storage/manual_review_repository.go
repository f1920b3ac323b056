package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/deadline-tracker/internal/models"
	"github.com/google/uuid"
)

// ManualReviewRepository handles the manual review queue. Append-only.
type ManualReviewRepository struct {
	db *PostgresDB
}

// NewManualReviewRepository creates a new manual review repository
func NewManualReviewRepository(db *PostgresDB) *ManualReviewRepository {
	return &ManualReviewRepository{db: db}
}

// Create appends an entry to the review queue
func (r *ManualReviewRepository) Create(ctx context.Context, entry *models.ManualReviewEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	entry.CreatedAt = time.Now()

	query := `
		INSERT INTO manual_review_queue (id, college_id, reason, error_detail, confidence_score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		entry.ID,
		entry.CollegeID,
		entry.Reason,
		entry.ErrorDetail,
		entry.ConfidenceScore,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create manual review entry: %w", err)
	}

	return nil
}

// List retrieves review queue entries, newest first
func (r *ManualReviewRepository) List(ctx context.Context, limit int) ([]*models.ManualReviewEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, college_id, reason, error_detail, confidence_score, created_at
		FROM manual_review_queue
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.Pool().Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list manual review entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.ManualReviewEntry
	for rows.Next() {
		var entry models.ManualReviewEntry
		err := rows.Scan(
			&entry.ID,
			&entry.CollegeID,
			&entry.Reason,
			&entry.ErrorDetail,
			&entry.ConfidenceScore,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan manual review entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate manual review entries: %w", err)
	}

	return entries, nil
}
