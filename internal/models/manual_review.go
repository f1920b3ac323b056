package models

import "time"

// ManualReviewEntry flags a college for human review after repeated scraping
// failures. Append-only; one entry per escalation episode (the threshold
// check only re-fires after a successful reconciliation resets the counter).
type ManualReviewEntry struct {
	ID              string    `json:"id" db:"id"`
	CollegeID       string    `json:"collegeId" db:"college_id"`
	Reason          string    `json:"reason" db:"reason"`
	ErrorDetail     string    `json:"errorDetail,omitempty" db:"error_detail"`
	ConfidenceScore *float64  `json:"confidenceScore,omitempty" db:"confidence_score"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
}
