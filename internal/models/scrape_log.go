package models

import "time"

// ScrapeLogEntry is an immutable audit row for one scrape attempt.
// Append-only; written for every attempt regardless of downstream outcome.
type ScrapeLogEntry struct {
	CollegeID        string    `json:"collegeId" ch:"college_id"`
	StartedAt        time.Time `json:"startedAt" ch:"started_at"`
	FinishedAt       time.Time `json:"finishedAt" ch:"finished_at"`
	Success          bool      `json:"success" ch:"success"`
	DeadlinesFound   int32     `json:"deadlinesFound" ch:"deadlines_found"`
	ChangesDetected  int32     `json:"changesDetected" ch:"changes_detected"`
	Error            string    `json:"error,omitempty" ch:"error"`
	ConfidenceScore  float64   `json:"confidenceScore" ch:"confidence_score"`
	ExtractionMethod string    `json:"extractionMethod,omitempty" ch:"extraction_method"`
	DurationMs       int64     `json:"durationMs" ch:"duration_ms"`
}
