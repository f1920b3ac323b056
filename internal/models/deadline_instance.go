package models

import (
	"time"

	"github.com/deadline-tracker/internal/dates"
	"github.com/deadline-tracker/internal/types"
)

// DeadlineInstance is a deadline created for one application. Instances are
// created by auto-population when an application is linked to a college and
// are owned by the user afterward; they are never auto-deleted.
type DeadlineInstance struct {
	ID            string               `json:"id" db:"id"`
	ApplicationID string               `json:"applicationId" db:"application_id"`
	Type          types.DeadlineType   `json:"type" db:"deadline_type"`
	Date          dates.Date           `json:"date" db:"date"`
	Description   string               `json:"description" db:"description"`
	Status        types.InstanceStatus `json:"status" db:"status"`
	SourceURL     *string              `json:"sourceUrl,omitempty" db:"source_url"`
	CreatedAt     time.Time            `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time            `json:"updatedAt" db:"updated_at"`
}

// Application links a user to a college they are applying to. Only the shape
// needed for instance ownership and notification fan-out lives here.
type Application struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	CollegeID string    `json:"collegeId" db:"college_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
