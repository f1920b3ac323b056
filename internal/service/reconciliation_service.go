// Package service implements the deadline reconciliation engine and the
// auto-population policy.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/deadline-tracker/internal/adapter"
	"github.com/deadline-tracker/internal/dates"
	"github.com/deadline-tracker/internal/logging"
	"github.com/deadline-tracker/internal/models"
	"github.com/deadline-tracker/internal/storage"
	"github.com/deadline-tracker/internal/types"
)

// escalationThreshold is the consecutive-failure count at which a college is
// flagged for manual review and demoted to the deprioritized tier.
const escalationThreshold = 3

// CollegeStore is the college persistence interface the services need
type CollegeStore interface {
	GetByID(ctx context.Context, id string) (*models.College, error)
	Update(ctx context.Context, college *models.College) error
}

// DeadlineYearStore reads deadline-by-year records
type DeadlineYearStore interface {
	Get(ctx context.Context, collegeID string, year int) (*models.DeadlineYearRecord, error)
	Exists(ctx context.Context, collegeID string, year int) (bool, error)
}

// ReconciliationCommitter commits the deadline upsert plus college update
// as one atomic write
type ReconciliationCommitter interface {
	CommitReconciliation(ctx context.Context, college *models.College, rec *models.DeadlineYearRecord) error
}

// ScrapeLogStore appends scrape attempt audit rows
type ScrapeLogStore interface {
	Append(ctx context.Context, entry *models.ScrapeLogEntry) error
}

// ReviewQueueStore appends manual review entries
type ReviewQueueStore interface {
	Create(ctx context.Context, entry *models.ManualReviewEntry) error
}

// ApplicationStore queries applications for notification fan-out
type ApplicationStore interface {
	DistinctUserIDsByCollege(ctx context.Context, collegeID string) ([]string, error)
}

// DeadlineCache is the optional read cache for deadline records
type DeadlineCache interface {
	GetDeadlineYear(ctx context.Context, collegeID string, year int) (*models.DeadlineYearRecord, error)
	SetDeadlineYear(ctx context.Context, rec *models.DeadlineYearRecord) error
	InvalidateDeadlineYear(ctx context.Context, collegeID string, year int) error
}

// ReconcileResult is the outcome of one reconciliation
type ReconcileResult struct {
	Success             bool                    `json:"success"`
	Changes             []models.DeadlineChange `json:"changes"`
	NotificationsSent   int                     `json:"notificationsSent"`
	NotificationsFailed int                     `json:"notificationsFailed"`
	Escalated           bool                    `json:"escalated"`
}

// ReconciliationService merges scraper observations into persisted deadline
// state, detects date drift, fans out change notifications and manages the
// failure escalation lifecycle.
type ReconciliationService struct {
	collegeStore CollegeStore
	yearStore    DeadlineYearStore
	committer    ReconciliationCommitter
	logStore     ScrapeLogStore
	reviewStore  ReviewQueueStore
	appStore     ApplicationStore
	cache        DeadlineCache
	notifier     adapter.DeadlineNotifier
	now          func() time.Time
}

// NewReconciliationService creates a new reconciliation service. cache may
// be nil to disable the read cache.
func NewReconciliationService(
	collegeStore CollegeStore,
	yearStore DeadlineYearStore,
	committer ReconciliationCommitter,
	logStore ScrapeLogStore,
	reviewStore ReviewQueueStore,
	appStore ApplicationStore,
	cache DeadlineCache,
	notifier adapter.DeadlineNotifier,
) *ReconciliationService {
	return &ReconciliationService{
		collegeStore: collegeStore,
		yearStore:    yearStore,
		committer:    committer,
		logStore:     logStore,
		reviewStore:  reviewStore,
		appStore:     appStore,
		cache:        cache,
		notifier:     notifier,
		now:          time.Now,
	}
}

// Reconcile processes one observation for one college. Observation failures
// are handled as data and drive the escalation counter; notification
// failures are swallowed. Storage errors propagate: they are fatal for this
// college's run.
func (s *ReconciliationService) Reconcile(ctx context.Context, college *models.College, obs *models.Observation) (result *ReconcileResult, err error) {
	logger := logging.FromContext(ctx).WithField("collegeId", college.ID)
	started := s.now()

	result = &ReconcileResult{}

	// One audit row per attempt, success or failure, appended on every exit
	// path. An append failure is a persistence failure for this college.
	defer func() {
		entry := &models.ScrapeLogEntry{
			CollegeID:        college.ID,
			StartedAt:        started,
			FinishedAt:       s.now(),
			Success:          obs.Success,
			DeadlinesFound:   int32(len(obs.Deadlines)),
			ChangesDetected:  int32(len(result.Changes)),
			Error:            obs.Error,
			ConfidenceScore:  obs.ConfidenceScore,
			ExtractionMethod: obs.ExtractionMethod,
			DurationMs:       obs.DurationMs,
		}
		if appendErr := s.logStore.Append(ctx, entry); appendErr != nil {
			logger.WithError(appendErr).Error("Failed to append scrape log entry")
			if err == nil {
				err = appendErr
			}
		}
	}()

	if !obs.Success {
		if err := s.reconcileFailure(ctx, college, obs, result); err != nil {
			return result, err
		}
		return result, nil
	}

	changes, err := s.reconcileSuccess(ctx, college, obs)
	if err != nil {
		return result, err
	}
	result.Success = true
	result.Changes = changes

	if len(changes) > 0 {
		sent, failed := s.fanOutNotifications(ctx, college, changes)
		result.NotificationsSent = sent
		result.NotificationsFailed = failed
	}

	return result, nil
}

// reconcileFailure advances the escalation state machine: healthy (count 0)
// -> degraded (1-2) -> flagged (>=3, tier demoted). The only reset
// transition is a successful reconciliation; promotion back to the normal
// tier is manual. Exactly one review entry is filed per episode, when the
// counter crosses the threshold; failures accumulating past it stay silent
// until a success resets the counter.
func (s *ReconciliationService) reconcileFailure(ctx context.Context, college *models.College, obs *models.Observation, result *ReconcileResult) error {
	logger := logging.FromContext(ctx).WithField("collegeId", college.ID)

	now := s.now()
	college.ScrapingFailureCount++
	college.LastScrapedAt = &now

	if college.ScrapingFailureCount == escalationThreshold {
		confidence := obs.ConfidenceScore
		entry := &models.ManualReviewEntry{
			CollegeID:       college.ID,
			Reason:          "Repeated scraping failures",
			ErrorDetail:     obs.Error,
			ConfidenceScore: &confidence,
		}
		if err := s.reviewStore.Create(ctx, entry); err != nil {
			return err
		}

		college.PriorityTier = types.TierDeprioritized
		college.ScrapingDifficult = true
		result.Escalated = true

		logger.WithFields(map[string]interface{}{
			"failureCount": college.ScrapingFailureCount,
			"tier":         college.PriorityTier,
		}).Warn("College flagged for manual review after repeated scraping failures")
	}

	if err := s.collegeStore.Update(ctx, college); err != nil {
		return err
	}

	logger.WithFields(map[string]interface{}{
		"failureCount": college.ScrapingFailureCount,
		"error":        obs.Error,
	}).Info("Scrape failed, failure count updated")

	return nil
}

func (s *ReconciliationService) reconcileSuccess(ctx context.Context, college *models.College, obs *models.Observation) ([]models.DeadlineChange, error) {
	logger := logging.FromContext(ctx).WithField("collegeId", college.ID)
	year := s.currentApplicationYear()

	existing, err := s.loadExisting(ctx, college.ID, year)
	if err != nil {
		return nil, err
	}

	candidate := s.buildCandidate(ctx, college, obs, existing, year)
	changes := detectChanges(existing, candidate)

	now := s.now()
	college.ScrapingFailureCount = 0
	college.LastScrapedAt = &now
	college.DeadlinesNotAvailable = false
	if obs.SourceURL != "" {
		url := obs.SourceURL
		college.DeadlinesPageURL = &url
	}

	if err := s.committer.CommitReconciliation(ctx, college, candidate); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateDeadlineYear(ctx, college.ID, year); err != nil {
			logger.WithError(err).Warn("Failed to invalidate deadline record cache")
		}
		if err := s.cache.SetDeadlineYear(ctx, candidate); err != nil {
			logger.WithError(err).Warn("Failed to refresh deadline record cache")
		}
	}

	logger.WithFields(map[string]interface{}{
		"year":            year,
		"deadlinesFound":  len(obs.Deadlines),
		"changesDetected": len(changes),
	}).Info("Reconciliation committed")

	return changes, nil
}

func (s *ReconciliationService) loadExisting(ctx context.Context, collegeID string, year int) (*models.DeadlineYearRecord, error) {
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
	return rec, nil
}

// buildCandidate maps the observation onto an explicit record with every
// persisted field set. Unparseable dates degrade to absent fields;
// unrecognized type codes are logged and skipped, the rest of the
// observation still merges.
func (s *ReconciliationService) buildCandidate(ctx context.Context, college *models.College, obs *models.Observation, existing *models.DeadlineYearRecord, year int) *models.DeadlineYearRecord {
	logger := logging.FromContext(ctx).WithField("collegeId", college.ID)

	candidate := &models.DeadlineYearRecord{
		CollegeID:              college.ID,
		ApplicationYear:        year,
		OffersEarlyDecision:    obs.Offered.OffersEarlyDecision,
		OffersEarlyAction:      obs.Offered.OffersEarlyAction,
		OffersRestrictiveEA:    obs.Offered.OffersRestrictiveEA,
		OffersRollingAdmission: obs.Offered.OffersRollingAdmission,
		SourceURL:              obs.SourceURL,
	}
	confidence := obs.ConfidenceScore
	candidate.ConfidenceScore = &confidence
	today := dates.FromTime(s.now().UTC())
	candidate.LastVerified = &today
	if existing != nil {
		candidate.CreatedAt = existing.CreatedAt
		candidate.PriorityDeadline = existing.PriorityDeadline
	}

	for _, observed := range obs.Deadlines {
		deadlineType, err := types.ParseDeadlineType(observed.Type)
		if err != nil {
			logger.WithField("typeCode", observed.Type).Warn("Skipping deadline with unrecognized type code")
			continue
		}
		if deadlineType == types.DeadlineRolling {
			// Rolling admission carries no scraped dates; the offered flag
			// is what matters.
			continue
		}

		if observed.ApplicationDate != "" {
			if d, ok := dates.Normalize(observed.ApplicationDate); ok {
				field, _ := candidate.ApplicationDate(deadlineType)
				*field = &d
			}
		}
		if observed.NotificationDate != "" {
			if d, ok := dates.Normalize(observed.NotificationDate); ok {
				field, _ := candidate.NotificationDate(deadlineType)
				*field = &d
			}
		}
	}

	return candidate
}

// detectChanges compares the five typed application dates. Only
// present-to-present drift counts: absence transitions are noise (first
// scrape, source temporarily omitting a field), never user-facing changes.
func detectChanges(existing, candidate *models.DeadlineYearRecord) []models.DeadlineChange {
	if existing == nil {
		return nil
	}

	var changes []models.DeadlineChange
	for _, t := range types.ScrapedDeadlineTypes {
		oldField, err := existing.ApplicationDate(t)
		if err != nil {
			continue
		}
		newField, err := candidate.ApplicationDate(t)
		if err != nil {
			continue
		}

		oldDate, newDate := *oldField, *newField
		if oldDate == nil || newDate == nil {
			continue
		}
		if !oldDate.Equal(*newDate) {
			changes = append(changes, models.DeadlineChange{
				FieldLabel: t.Label(),
				OldDate:    oldDate.String(),
				NewDate:    newDate.String(),
			})
		}
	}

	return changes
}

// fanOutNotifications notifies every applying user about every change.
// Total invocations = distinct users x changes. Every failure is logged and
// swallowed; delivery is best-effort and never affects the reconciliation.
func (s *ReconciliationService) fanOutNotifications(ctx context.Context, college *models.College, changes []models.DeadlineChange) (sent, failed int) {
	logger := logging.FromContext(ctx).WithField("collegeId", college.ID)

	userIDs, err := s.appStore.DistinctUserIDsByCollege(ctx, college.ID)
	if err != nil {
		logger.WithError(err).Error("Failed to list applying users for notification fan-out")
		return 0, 0
	}

	for _, userID := range userIDs {
		for _, change := range changes {
			notifyErr := s.notifier.NotifyDeadlineChange(ctx, &adapter.DeadlineChangeNotification{
				UserID:       userID,
				CollegeID:    college.ID,
				CollegeName:  college.Name,
				DeadlineType: change.FieldLabel,
				OldDate:      change.OldDate,
				NewDate:      change.NewDate,
			})
			if notifyErr != nil {
				failed++
				logger.WithFields(map[string]interface{}{
					"userId": userID,
					"error":  notifyErr.Error(),
				}).Warn("Failed to deliver deadline change notification")
				continue
			}
			sent++
		}
	}

	return sent, failed
}

// currentApplicationYear returns the application year reconciliation
// operates on
func (s *ReconciliationService) currentApplicationYear() int {
	return s.now().UTC().Year()
}
