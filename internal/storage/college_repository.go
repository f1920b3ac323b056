package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deadline-tracker/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// CollegeRepository handles college data persistence
type CollegeRepository struct {
	db *PostgresDB
}

// NewCollegeRepository creates a new college repository
func NewCollegeRepository(db *PostgresDB) *CollegeRepository {
	return &CollegeRepository{db: db}
}

// BeginTx starts a new transaction
func (r *CollegeRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.db.Pool().Begin(ctx)
}

// Create creates a new college record
func (r *CollegeRepository) Create(ctx context.Context, college *models.College) error {
	if college.ID == "" {
		college.ID = uuid.New().String()
	}
	if college.PriorityTier == 0 {
		college.PriorityTier = 1
	}

	now := time.Now()
	college.CreatedAt = now
	college.UpdatedAt = now

	query := `
		INSERT INTO colleges (
			id, name, aliases, priority_tier, scraping_failure_count,
			scraping_difficult, deadlines_not_available, deadlines_page_url,
			last_scraped_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		college.ID,
		college.Name,
		college.Aliases,
		college.PriorityTier,
		college.ScrapingFailureCount,
		college.ScrapingDifficult,
		college.DeadlinesNotAvailable,
		college.DeadlinesPageURL,
		college.LastScrapedAt,
		college.CreatedAt,
		college.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create college: %w", err)
	}

	return nil
}

const collegeColumns = `
	id, name, aliases, priority_tier, scraping_failure_count,
	scraping_difficult, deadlines_not_available, deadlines_page_url,
	last_scraped_at, created_at, updated_at
`

func scanCollege(row pgx.Row) (*models.College, error) {
	var college models.College
	err := row.Scan(
		&college.ID,
		&college.Name,
		&college.Aliases,
		&college.PriorityTier,
		&college.ScrapingFailureCount,
		&college.ScrapingDifficult,
		&college.DeadlinesNotAvailable,
		&college.DeadlinesPageURL,
		&college.LastScrapedAt,
		&college.CreatedAt,
		&college.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &college, nil
}

// GetByID retrieves a college by ID
func (r *CollegeRepository) GetByID(ctx context.Context, id string) (*models.College, error) {
	query := `SELECT ` + collegeColumns + ` FROM colleges WHERE id = $1`

	college, err := scanCollege(r.db.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("college %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get college: %w", err)
	}

	return college, nil
}

// List retrieves all colleges ordered by scraping priority then name, so a
// run works through normal-tier colleges before deprioritized ones.
func (r *CollegeRepository) List(ctx context.Context) ([]*models.College, error) {
	query := `SELECT ` + collegeColumns + ` FROM colleges ORDER BY priority_tier ASC, name ASC`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list colleges: %w", err)
	}
	defer rows.Close()

	var colleges []*models.College
	for rows.Next() {
		college, err := scanCollege(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan college: %w", err)
		}
		colleges = append(colleges, college)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate colleges: %w", err)
	}

	return colleges, nil
}

// Update updates a college's scraping metadata and flags
func (r *CollegeRepository) Update(ctx context.Context, college *models.College) error {
	return r.update(ctx, r.db.Pool(), college)
}

// UpdateWithTx updates a college within a transaction
func (r *CollegeRepository) UpdateWithTx(ctx context.Context, tx pgx.Tx, college *models.College) error {
	return r.update(ctx, tx, college)
}

// execQuerier is satisfied by both *pgxpool.Pool and pgx.Tx
type execQuerier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func (r *CollegeRepository) update(ctx context.Context, q execQuerier, college *models.College) error {
	college.UpdatedAt = time.Now()

	query := `
		UPDATE colleges
		SET name = $2, aliases = $3, priority_tier = $4,
			scraping_failure_count = $5, scraping_difficult = $6,
			deadlines_not_available = $7, deadlines_page_url = $8,
			last_scraped_at = $9, updated_at = $10
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query,
		college.ID,
		college.Name,
		college.Aliases,
		college.PriorityTier,
		college.ScrapingFailureCount,
		college.ScrapingDifficult,
		college.DeadlinesNotAvailable,
		college.DeadlinesPageURL,
		college.LastScrapedAt,
		college.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update college: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("college %s: %w", college.ID, ErrNotFound)
	}

	return nil
}
