package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/deadline-tracker/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DeadlineInstanceRepository handles per-application deadline instances
type DeadlineInstanceRepository struct {
	db *PostgresDB
}

// NewDeadlineInstanceRepository creates a new deadline instance repository
func NewDeadlineInstanceRepository(db *PostgresDB) *DeadlineInstanceRepository {
	return &DeadlineInstanceRepository{db: db}
}

// InsertBatch inserts all instances for one population event as a single
// all-or-nothing batch. A crash between inserts cannot leave a partial
// subset visible: everything happens inside one transaction.
func (r *DeadlineInstanceRepository) InsertBatch(ctx context.Context, instances []*models.DeadlineInstance) error {
	if len(instances) == 0 {
		return nil
	}

	tx, err := r.db.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := r.InsertBatchWithTx(ctx, tx, instances); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit instance batch: %w", err)
	}

	return nil
}

// InsertBatchWithTx inserts instances within an existing transaction
func (r *DeadlineInstanceRepository) InsertBatchWithTx(ctx context.Context, tx pgx.Tx, instances []*models.DeadlineInstance) error {
	now := time.Now()

	batch := &pgx.Batch{}
	query := `
		INSERT INTO deadline_instances (
			id, application_id, deadline_type, date, description,
			status, source_url, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	for _, inst := range instances {
		if inst.ID == "" {
			inst.ID = uuid.New().String()
		}
		inst.CreatedAt = now
		inst.UpdatedAt = now

		batch.Queue(query,
			inst.ID,
			inst.ApplicationID,
			inst.Type,
			inst.Date,
			inst.Description,
			inst.Status,
			inst.SourceURL,
			inst.CreatedAt,
			inst.UpdatedAt,
		)
	}

	results := tx.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	for range instances {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert deadline instance: %w", err)
		}
	}

	return nil
}

// ListByApplication retrieves all deadline instances for an application
func (r *DeadlineInstanceRepository) ListByApplication(ctx context.Context, applicationID string) ([]*models.DeadlineInstance, error) {
	query := `
		SELECT id, application_id, deadline_type, date, description,
			   status, source_url, created_at, updated_at
		FROM deadline_instances
		WHERE application_id = $1
		ORDER BY date ASC
	`

	rows, err := r.db.Pool().Query(ctx, query, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list deadline instances: %w", err)
	}
	defer rows.Close()

	var instances []*models.DeadlineInstance
	for rows.Next() {
		var inst models.DeadlineInstance
		err := rows.Scan(
			&inst.ID,
			&inst.ApplicationID,
			&inst.Type,
			&inst.Date,
			&inst.Description,
			&inst.Status,
			&inst.SourceURL,
			&inst.CreatedAt,
			&inst.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deadline instance: %w", err)
		}
		instances = append(instances, &inst)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate deadline instances: %w", err)
	}

	return instances, nil
}

// MarkMissed transitions uncompleted instances whose date has elapsed to the
// missed status. Returns the number of instances transitioned.
func (r *DeadlineInstanceRepository) MarkMissed(ctx context.Context, asOf time.Time) (int64, error) {
	query := `
		UPDATE deadline_instances
		SET status = 'missed', updated_at = $2
		WHERE date < $1 AND status IN ('not_started', 'in_progress')
	`

	tag, err := r.db.Pool().Exec(ctx, query, asOf, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to mark missed deadlines: %w", err)
	}

	return tag.RowsAffected(), nil
}
