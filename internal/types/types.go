// Package types provides common type definitions for the deadline tracker system.
package types

import "fmt"

// DeadlineType represents an admission plan deadline category
type DeadlineType string

const (
	// DeadlineED1 represents the Early Decision I deadline
	DeadlineED1 DeadlineType = "ed1"
	// DeadlineED2 represents the Early Decision II deadline
	DeadlineED2 DeadlineType = "ed2"
	// DeadlineEA represents the Early Action deadline
	DeadlineEA DeadlineType = "ea"
	// DeadlineREA represents the Restrictive Early Action deadline
	DeadlineREA DeadlineType = "rea"
	// DeadlineRD represents the Regular Decision deadline
	DeadlineRD DeadlineType = "rd"
	// DeadlineRolling represents a rolling admission deadline
	DeadlineRolling DeadlineType = "rolling_admission"
)

// ScrapedDeadlineTypes lists the deadline types a scraper observation may carry.
// Rolling admission is derived from the offered flags, never scraped directly.
var ScrapedDeadlineTypes = []DeadlineType{
	DeadlineED1,
	DeadlineED2,
	DeadlineEA,
	DeadlineREA,
	DeadlineRD,
}

// ParseDeadlineType maps a scraped type code to a DeadlineType.
// The mapping is total over the known codes; anything else is an error so
// an unrecognized code from the scraper surfaces instead of being dropped.
func ParseDeadlineType(code string) (DeadlineType, error) {
	switch DeadlineType(code) {
	case DeadlineED1, DeadlineED2, DeadlineEA, DeadlineREA, DeadlineRD, DeadlineRolling:
		return DeadlineType(code), nil
	default:
		return "", fmt.Errorf("unknown deadline type code: %q", code)
	}
}

// Label returns the human-readable name used in notifications and descriptions
func (t DeadlineType) Label() string {
	switch t {
	case DeadlineED1:
		return "Early Decision I"
	case DeadlineED2:
		return "Early Decision II"
	case DeadlineEA:
		return "Early Action"
	case DeadlineREA:
		return "Restrictive Early Action"
	case DeadlineRD:
		return "Regular Decision"
	case DeadlineRolling:
		return "Rolling Admission"
	default:
		return string(t)
	}
}

// InstanceStatus represents the lifecycle state of a deadline instance
type InstanceStatus string

const (
	// StatusNotStarted represents a deadline the user has not begun working toward
	StatusNotStarted InstanceStatus = "not_started"
	// StatusInProgress represents a deadline the user is actively working toward
	StatusInProgress InstanceStatus = "in_progress"
	// StatusCompleted represents a deadline the user has satisfied
	StatusCompleted InstanceStatus = "completed"
	// StatusMissed represents a deadline whose date elapsed uncompleted
	StatusMissed InstanceStatus = "missed"
)

// PriorityTier represents scraping priority for a college
type PriorityTier int

const (
	// TierNormal represents colleges scraped at normal priority
	TierNormal PriorityTier = 1
	// TierDeprioritized represents colleges demoted after repeated scraping failures
	TierDeprioritized PriorityTier = 2
)

// ServiceError represents a service-level error with a code and details
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
