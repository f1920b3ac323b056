// Package adapter provides clients for the external scraper and notifier
// services. Page fetching, HTML extraction and notification delivery live
// in those services; this package only speaks their HTTP APIs.
package adapter

import (
	"context"

	"github.com/deadline-tracker/internal/models"
)

// ObservationSource produces one structured deadline observation per college.
type ObservationSource interface {
	// Scrape fetches a fresh observation for the college. A failed fetch is
	// reported as an Observation with Success=false, not as an error; the
	// error return is reserved for request-construction and cancellation.
	Scrape(ctx context.Context, college *models.College) (*models.Observation, error)
}

// DeadlineNotifier delivers a single deadline-change notification to a user.
type DeadlineNotifier interface {
	NotifyDeadlineChange(ctx context.Context, n *DeadlineChangeNotification) error
}

// DeadlineChangeNotification carries one change for one user.
type DeadlineChangeNotification struct {
	UserID       string `json:"userId"`
	CollegeID    string `json:"collegeId"`
	CollegeName  string `json:"collegeName"`
	DeadlineType string `json:"deadlineType"`
	OldDate      string `json:"oldDate"`
	NewDate      string `json:"newDate"`
}
