package models

import (
	"fmt"
	"time"

	"github.com/deadline-tracker/internal/dates"
	"github.com/deadline-tracker/internal/types"
)

// DeadlineYearRecord holds the per-college deadlines for one application year.
// One row per (college, application year); created on the first successful
// reconciliation for that year and updated in place thereafter.
// A typed date is only meaningful when its offered flag is set (RD needs no
// flag: presence of the date is authoritative).
type DeadlineYearRecord struct {
	CollegeID       string `json:"collegeId" db:"college_id"`
	ApplicationYear int    `json:"applicationYear" db:"application_year"`

	ED1Date         *dates.Date `json:"ed1Date,omitempty" db:"ed1_date"`
	ED1Notification *dates.Date `json:"ed1Notification,omitempty" db:"ed1_notification"`
	ED2Date         *dates.Date `json:"ed2Date,omitempty" db:"ed2_date"`
	ED2Notification *dates.Date `json:"ed2Notification,omitempty" db:"ed2_notification"`
	EADate          *dates.Date `json:"eaDate,omitempty" db:"ea_date"`
	EANotification  *dates.Date `json:"eaNotification,omitempty" db:"ea_notification"`
	READate         *dates.Date `json:"reaDate,omitempty" db:"rea_date"`
	REANotification *dates.Date `json:"reaNotification,omitempty" db:"rea_notification"`
	RDDate          *dates.Date `json:"regularDecisionDate,omitempty" db:"rd_date"`
	RDNotification  *dates.Date `json:"rdNotification,omitempty" db:"rd_notification"`

	OffersEarlyDecision    bool `json:"offersEarlyDecision" db:"offers_early_decision"`
	OffersEarlyAction      bool `json:"offersEarlyAction" db:"offers_early_action"`
	OffersRestrictiveEA    bool `json:"offersRestrictiveEa" db:"offers_restrictive_ea"`
	OffersRollingAdmission bool `json:"offersRollingAdmission" db:"offers_rolling_admission"`

	PriorityDeadline *dates.Date `json:"priorityDeadline,omitempty" db:"priority_deadline"`
	ConfidenceScore  *float64    `json:"confidenceScore,omitempty" db:"confidence_score"`
	SourceURL        string      `json:"sourceUrl" db:"source_url"`
	LastVerified     *dates.Date `json:"lastVerified,omitempty" db:"last_verified"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// ApplicationDate returns a pointer to the application-date field for the
// given scraped deadline type. The mapping is total over the scraped types.
func (r *DeadlineYearRecord) ApplicationDate(t types.DeadlineType) (**dates.Date, error) {
	switch t {
	case types.DeadlineED1:
		return &r.ED1Date, nil
	case types.DeadlineED2:
		return &r.ED2Date, nil
	case types.DeadlineEA:
		return &r.EADate, nil
	case types.DeadlineREA:
		return &r.READate, nil
	case types.DeadlineRD:
		return &r.RDDate, nil
	default:
		return nil, fmt.Errorf("no application-date field for deadline type %q", t)
	}
}

// NotificationDate returns a pointer to the notification-date field for the
// given scraped deadline type.
func (r *DeadlineYearRecord) NotificationDate(t types.DeadlineType) (**dates.Date, error) {
	switch t {
	case types.DeadlineED1:
		return &r.ED1Notification, nil
	case types.DeadlineED2:
		return &r.ED2Notification, nil
	case types.DeadlineEA:
		return &r.EANotification, nil
	case types.DeadlineREA:
		return &r.REANotification, nil
	case types.DeadlineRD:
		return &r.RDNotification, nil
	default:
		return nil, fmt.Errorf("no notification-date field for deadline type %q", t)
	}
}
