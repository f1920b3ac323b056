package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deadline-tracker/internal/models"
	"github.com/jackc/pgx/v5"
)

// DeadlineYearRepository handles per-college deadline-by-year persistence
type DeadlineYearRepository struct {
	db *PostgresDB
}

// NewDeadlineYearRepository creates a new deadline year repository
func NewDeadlineYearRepository(db *PostgresDB) *DeadlineYearRepository {
	return &DeadlineYearRepository{db: db}
}

// BeginTx starts a new transaction
func (r *DeadlineYearRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.db.Pool().Begin(ctx)
}

const deadlineYearColumns = `
	college_id, application_year,
	ed1_date, ed1_notification, ed2_date, ed2_notification,
	ea_date, ea_notification, rea_date, rea_notification,
	rd_date, rd_notification,
	offers_early_decision, offers_early_action,
	offers_restrictive_ea, offers_rolling_admission,
	priority_deadline, confidence_score, source_url, last_verified,
	created_at, updated_at
`

func scanDeadlineYear(row pgx.Row) (*models.DeadlineYearRecord, error) {
	var rec models.DeadlineYearRecord
	err := row.Scan(
		&rec.CollegeID,
		&rec.ApplicationYear,
		&rec.ED1Date,
		&rec.ED1Notification,
		&rec.ED2Date,
		&rec.ED2Notification,
		&rec.EADate,
		&rec.EANotification,
		&rec.READate,
		&rec.REANotification,
		&rec.RDDate,
		&rec.RDNotification,
		&rec.OffersEarlyDecision,
		&rec.OffersEarlyAction,
		&rec.OffersRestrictiveEA,
		&rec.OffersRollingAdmission,
		&rec.PriorityDeadline,
		&rec.ConfidenceScore,
		&rec.SourceURL,
		&rec.LastVerified,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Get retrieves the deadline record for a (college, application year) pair
func (r *DeadlineYearRepository) Get(ctx context.Context, collegeID string, year int) (*models.DeadlineYearRecord, error) {
	query := `SELECT ` + deadlineYearColumns + `
		FROM deadline_years
		WHERE college_id = $1 AND application_year = $2`

	rec, err := scanDeadlineYear(r.db.Pool().QueryRow(ctx, query, collegeID, year))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("deadline record for college %s year %d: %w", collegeID, year, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get deadline record: %w", err)
	}

	return rec, nil
}

// Exists reports whether a deadline record exists for the (college, year) pair
func (r *DeadlineYearRepository) Exists(ctx context.Context, collegeID string, year int) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM deadline_years WHERE college_id = $1 AND application_year = $2
	)`

	var exists bool
	if err := r.db.Pool().QueryRow(ctx, query, collegeID, year).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check deadline record existence: %w", err)
	}

	return exists, nil
}

// Upsert inserts or updates the deadline record for its (college, year) key
func (r *DeadlineYearRepository) Upsert(ctx context.Context, rec *models.DeadlineYearRecord) error {
	return r.upsert(ctx, r.db.Pool(), rec)
}

// UpsertWithTx inserts or updates the deadline record within a transaction
func (r *DeadlineYearRepository) UpsertWithTx(ctx context.Context, tx pgx.Tx, rec *models.DeadlineYearRecord) error {
	return r.upsert(ctx, tx, rec)
}

func (r *DeadlineYearRepository) upsert(ctx context.Context, q execQuerier, rec *models.DeadlineYearRecord) error {
	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	// Every persisted field is written explicitly so the write-set of the
	// upsert is statically known.
	query := `
		INSERT INTO deadline_years (
			college_id, application_year,
			ed1_date, ed1_notification, ed2_date, ed2_notification,
			ea_date, ea_notification, rea_date, rea_notification,
			rd_date, rd_notification,
			offers_early_decision, offers_early_action,
			offers_restrictive_ea, offers_rolling_admission,
			priority_deadline, confidence_score, source_url, last_verified,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		ON CONFLICT (college_id, application_year) DO UPDATE SET
			ed1_date = EXCLUDED.ed1_date,
			ed1_notification = EXCLUDED.ed1_notification,
			ed2_date = EXCLUDED.ed2_date,
			ed2_notification = EXCLUDED.ed2_notification,
			ea_date = EXCLUDED.ea_date,
			ea_notification = EXCLUDED.ea_notification,
			rea_date = EXCLUDED.rea_date,
			rea_notification = EXCLUDED.rea_notification,
			rd_date = EXCLUDED.rd_date,
			rd_notification = EXCLUDED.rd_notification,
			offers_early_decision = EXCLUDED.offers_early_decision,
			offers_early_action = EXCLUDED.offers_early_action,
			offers_restrictive_ea = EXCLUDED.offers_restrictive_ea,
			offers_rolling_admission = EXCLUDED.offers_rolling_admission,
			priority_deadline = EXCLUDED.priority_deadline,
			confidence_score = EXCLUDED.confidence_score,
			source_url = EXCLUDED.source_url,
			last_verified = EXCLUDED.last_verified,
			updated_at = EXCLUDED.updated_at
	`

	_, err := q.Exec(ctx, query,
		rec.CollegeID,
		rec.ApplicationYear,
		rec.ED1Date,
		rec.ED1Notification,
		rec.ED2Date,
		rec.ED2Notification,
		rec.EADate,
		rec.EANotification,
		rec.READate,
		rec.REANotification,
		rec.RDDate,
		rec.RDNotification,
		rec.OffersEarlyDecision,
		rec.OffersEarlyAction,
		rec.OffersRestrictiveEA,
		rec.OffersRollingAdmission,
		rec.PriorityDeadline,
		rec.ConfidenceScore,
		rec.SourceURL,
		rec.LastVerified,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert deadline record: %w", err)
	}

	return nil
}
