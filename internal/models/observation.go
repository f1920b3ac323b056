package models

// ObservedDeadline is one deadline as reported by the scraper. Dates arrive
// as raw strings and go through dates.Normalize during reconciliation.
type ObservedDeadline struct {
	Type             string `json:"type"`
	ApplicationDate  string `json:"applicationDate,omitempty"`
	NotificationDate string `json:"notificationDate,omitempty"`
}

// OfferedTypes carries the admission plans the scraper confirmed a college
// offers. Explicit flags, never inferred from which dates happen to be set.
type OfferedTypes struct {
	OffersEarlyDecision    bool `json:"offersEarlyDecision"`
	OffersEarlyAction      bool `json:"offersEarlyAction"`
	OffersRestrictiveEA    bool `json:"offersRestrictiveEa"`
	OffersRollingAdmission bool `json:"offersRollingAdmission"`
}

// Observation is one scrape attempt's structured result for a college.
// A failed fetch is still an Observation (Success=false, Error set); the
// reconciliation engine treats failure as data, not as a thrown error.
type Observation struct {
	Success          bool               `json:"success"`
	Deadlines        []ObservedDeadline `json:"deadlines"`
	Offered          OfferedTypes       `json:"offeredTypes"`
	ConfidenceScore  float64            `json:"confidenceScore"`
	SourceURL        string             `json:"sourceUrl"`
	Error            string             `json:"error,omitempty"`
	ExtractionMethod string             `json:"extractionMethod,omitempty"`
	DurationMs       int64              `json:"durationMs"`
}

// DeadlineChange records one detected field-level date change for a college.
type DeadlineChange struct {
	FieldLabel string `json:"fieldLabel"`
	OldDate    string `json:"oldDate"`
	NewDate    string `json:"newDate"`
}
