package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deadline-tracker/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ApplicationRepository handles application data persistence
type ApplicationRepository struct {
	db *PostgresDB
}

// NewApplicationRepository creates a new application repository
func NewApplicationRepository(db *PostgresDB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create creates a new application record
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	if app.ID == "" {
		app.ID = uuid.New().String()
	}
	app.CreatedAt = time.Now()

	query := `
		INSERT INTO applications (id, user_id, college_id, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.Pool().Exec(ctx, query, app.ID, app.UserID, app.CollegeID, app.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	return nil
}

// GetByID retrieves an application by ID
func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*models.Application, error) {
	query := `SELECT id, user_id, college_id, created_at FROM applications WHERE id = $1`

	var app models.Application
	err := r.db.Pool().QueryRow(ctx, query, id).Scan(
		&app.ID,
		&app.UserID,
		&app.CollegeID,
		&app.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("application %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}

	return &app, nil
}

// DistinctUserIDsByCollege returns the distinct users with an application
// referencing the college. Notification fan-out iterates this set.
func (r *ApplicationRepository) DistinctUserIDsByCollege(ctx context.Context, collegeID string) ([]string, error) {
	query := `SELECT DISTINCT user_id FROM applications WHERE college_id = $1`

	rows, err := r.db.Pool().Query(ctx, query, collegeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query applying users: %w", err)
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		userIDs = append(userIDs, userID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate applying users: %w", err)
	}

	return userIDs, nil
}
