package storage

import (
	"context"
	"fmt"

	"github.com/deadline-tracker/internal/models"
)

// ReconciliationStore commits the write half of a reconciliation: the
// deadline-record upsert and the college metadata update land in one
// transaction, so readers see either the full new state or none of it.
type ReconciliationStore struct {
	db       *PostgresDB
	years    *DeadlineYearRepository
	colleges *CollegeRepository
}

// NewReconciliationStore creates a new reconciliation store
func NewReconciliationStore(db *PostgresDB, years *DeadlineYearRepository, colleges *CollegeRepository) *ReconciliationStore {
	return &ReconciliationStore{
		db:       db,
		years:    years,
		colleges: colleges,
	}
}

// CommitReconciliation upserts the deadline record and updates the college
// atomically
func (s *ReconciliationStore) CommitReconciliation(ctx context.Context, college *models.College, rec *models.DeadlineYearRecord) error {
	tx, err := s.db.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin reconciliation transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.years.UpsertWithTx(ctx, tx, rec); err != nil {
		return err
	}

	if err := s.colleges.UpdateWithTx(ctx, tx, college); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit reconciliation: %w", err)
	}

	return nil
}
