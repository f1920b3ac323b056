package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deadline-tracker/internal/dates"
	"github.com/deadline-tracker/internal/logging"
	"github.com/deadline-tracker/internal/models"
	"github.com/deadline-tracker/internal/storage"
	"github.com/deadline-tracker/internal/types"
)

// confidenceFloor gates auto-population: a current-year record scoring below
// this falls back to the prior year's data.
const confidenceFloor = 0.7

// InstanceStore persists deadline instances
type InstanceStore interface {
	InsertBatch(ctx context.Context, instances []*models.DeadlineInstance) error
}

// PopulateResult is the outcome of one auto-population request
type PopulateResult struct {
	Success            bool                       `json:"success"`
	DeadlinesAdded     []*models.DeadlineInstance `json:"deadlinesAdded"`
	UsedHistoricalData bool                       `json:"usedHistoricalData"`
	Message            string                     `json:"message"`
}

// PopulationService decides which deadline instances to create when an
// application is linked to a college, applying the confidence-gated
// fallback to the prior year's data.
type PopulationService struct {
	collegeStore  CollegeStore
	yearStore     DeadlineYearStore
	instanceStore InstanceStore
	cache         DeadlineCache
	now           func() time.Time
}

// NewPopulationService creates a new population service. cache may be nil.
func NewPopulationService(
	collegeStore CollegeStore,
	yearStore DeadlineYearStore,
	instanceStore InstanceStore,
	cache DeadlineCache,
) *PopulationService {
	return &PopulationService{
		collegeStore:  collegeStore,
		yearStore:     yearStore,
		instanceStore: instanceStore,
		cache:         cache,
		now:           time.Now,
	}
}

// Populate creates deadline instances for an application from the college's
// deadline record. Missing data is a normal outcome reported in the result,
// not an error; only storage failures return an error.
func (s *PopulationService) Populate(ctx context.Context, applicationID, collegeID string) (*PopulateResult, error) {
	logger := logging.FromContext(ctx).WithFields(map[string]interface{}{
		"applicationId": applicationID,
		"collegeId":     collegeID,
	})

	college, err := s.collegeStore.GetByID(ctx, collegeID)
	if err != nil {
		return nil, err
	}

	currentYear := s.now().UTC().Year()

	rec, usedHistorical, err := s.selectRecord(ctx, collegeID, currentYear)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return &PopulateResult{
			Success: false,
			Message: fmt.Sprintf("No deadline data available for %s yet.", college.Name),
		}, nil
	}

	candidates := buildCandidates(rec, applicationID, currentYear)
	if len(candidates) == 0 {
		return &PopulateResult{
			Success:            false,
			UsedHistoricalData: usedHistorical,
			Message:            fmt.Sprintf("No applicable deadlines found for %s.", college.Name),
		}, nil
	}

	// All candidates commit together or not at all; a crash mid-population
	// must not leave a partial set of deadlines on the application.
	if err := s.instanceStore.InsertBatch(ctx, candidates); err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"deadlinesAdded":     len(candidates),
		"usedHistoricalData": usedHistorical,
	}).Info("Application deadlines populated")

	message := fmt.Sprintf("Added %d deadlines for %s.", len(candidates), college.Name)
	if usedHistorical {
		message = fmt.Sprintf(
			"Added %d deadlines for %s using last year's dates. This year's deadlines aren't released yet; they will update automatically once published.",
			len(candidates), college.Name,
		)
	}

	return &PopulateResult{
		Success:            true,
		DeadlinesAdded:     candidates,
		UsedHistoricalData: usedHistorical,
		Message:            message,
	}, nil
}

// selectRecord applies the confidence gate: the current-year record is used
// unless it is missing or its confidence score is present and below the
// floor, in which case the prior year's record (if any) is used instead.
func (s *PopulationService) selectRecord(ctx context.Context, collegeID string, currentYear int) (rec *models.DeadlineYearRecord, usedHistorical bool, err error) {
	current, err := s.getRecord(ctx, collegeID, currentYear)
	if err != nil {
		return nil, false, err
	}

	if current != nil && (current.ConfidenceScore == nil || *current.ConfidenceScore >= confidenceFloor) {
		return current, false, nil
	}

	previous, err := s.getRecord(ctx, collegeID, currentYear-1)
	if err != nil {
		return nil, false, err
	}
	if previous != nil {
		return previous, true, nil
	}

	return nil, false, nil
}

func (s *PopulationService) getRecord(ctx context.Context, collegeID string, year int) (*models.DeadlineYearRecord, error) {
	if s.cache != nil {
		if rec, err := s.cache.GetDeadlineYear(ctx, collegeID, year); err == nil && rec != nil {
			return rec, nil
		}
	}

	rec, err := s.yearStore.Get(ctx, collegeID, year)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if s.cache != nil {
		if cacheErr := s.cache.SetDeadlineYear(ctx, rec); cacheErr != nil {
			logging.FromContext(ctx).WithError(cacheErr).Warn("Failed to cache deadline record")
		}
	}

	return rec, nil
}

// buildCandidates extracts the deadline instances a record supports. Pure
// function of the record: a typed date is only emitted when the college is
// confirmed to offer that plan (RD needs no flag; its date is
// authoritative).
func buildCandidates(rec *models.DeadlineYearRecord, applicationID string, currentYear int) []*models.DeadlineInstance {
	var candidates []*models.DeadlineInstance

	add := func(t types.DeadlineType, date dates.Date, description string) {
		inst := &models.DeadlineInstance{
			ApplicationID: applicationID,
			Type:          t,
			Date:          date,
			Description:   description,
			Status:        types.StatusNotStarted,
		}
		if rec.SourceURL != "" {
			url := rec.SourceURL
			inst.SourceURL = &url
		}
		candidates = append(candidates, inst)
	}

	if rec.OffersEarlyDecision && rec.ED1Date != nil {
		add(types.DeadlineED1, *rec.ED1Date, types.DeadlineED1.Label()+" deadline")
	}
	// ED2 is independent of ED1; a college may offer only one round.
	if rec.OffersEarlyDecision && rec.ED2Date != nil {
		add(types.DeadlineED2, *rec.ED2Date, types.DeadlineED2.Label()+" deadline")
	}
	if rec.OffersEarlyAction && rec.EADate != nil {
		add(types.DeadlineEA, *rec.EADate, types.DeadlineEA.Label()+" deadline")
	}
	if rec.OffersRestrictiveEA && rec.READate != nil {
		add(types.DeadlineREA, *rec.READate, types.DeadlineREA.Label()+" deadline")
	}
	if rec.RDDate != nil {
		add(types.DeadlineRD, *rec.RDDate, types.DeadlineRD.Label()+" deadline")
	}

	if rec.OffersRollingAdmission {
		switch {
		case rec.PriorityDeadline != nil:
			add(types.DeadlineRolling, *rec.PriorityDeadline, "Priority deadline for rolling admission")
		case rec.RDDate != nil:
			add(types.DeadlineRolling, *rec.RDDate, "Rolling admission")
		default:
			add(types.DeadlineRolling, dates.New(currentYear+1, time.June, 1), "Rolling admission")
		}
	}

	return candidates
}

// HasDeadlineData reports whether any record exists for the current or
// prior application year. Pure read; callers use it to decide whether to
// attempt population at all.
func (s *PopulationService) HasDeadlineData(ctx context.Context, collegeID string) (bool, error) {
	currentYear := s.now().UTC().Year()

	for _, year := range []int{currentYear, currentYear - 1} {
		exists, err := s.yearStore.Exists(ctx, collegeID, year)
		if err != nil {
			return false, err
		}
		if exists {
			return true, nil
		}
	}

	return false, nil
}
