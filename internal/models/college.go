package models

import (
	"time"

	"github.com/deadline-tracker/internal/types"
)

// College represents a college whose deadlines are tracked.
// The scraping failure counter and tier live here, not in shared state:
// the reconciliation engine is the only writer after a scrape attempt.
type College struct {
	ID                    string             `json:"id" db:"id"`
	Name                  string             `json:"name" db:"name"`
	Aliases               []string           `json:"aliases,omitempty" db:"aliases"`
	PriorityTier          types.PriorityTier `json:"priorityTier" db:"priority_tier"`
	ScrapingFailureCount  int                `json:"scrapingFailureCount" db:"scraping_failure_count"`
	ScrapingDifficult     bool               `json:"scrapingDifficult" db:"scraping_difficult"`
	DeadlinesNotAvailable bool               `json:"deadlinesNotAvailable" db:"deadlines_not_available"`
	DeadlinesPageURL      *string            `json:"deadlinesPageUrl,omitempty" db:"deadlines_page_url"`
	LastScrapedAt         *time.Time         `json:"lastScrapedAt,omitempty" db:"last_scraped_at"`
	CreatedAt             time.Time          `json:"createdAt" db:"created_at"`
	UpdatedAt             time.Time          `json:"updatedAt" db:"updated_at"`
}
