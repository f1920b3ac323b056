// Package worker runs the scheduled scrape-and-reconcile loop over the
// college roster.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/deadline-tracker/internal/adapter"
	"github.com/deadline-tracker/internal/logging"
	"github.com/deadline-tracker/internal/models"
	"github.com/deadline-tracker/internal/service"
)

// CollegeDirectory provides the roster a run iterates over, ordered by
// priority tier, plus single-college lookup for manual runs.
type CollegeDirectory interface {
	List(ctx context.Context) ([]*models.College, error)
	GetByID(ctx context.Context, id string) (*models.College, error)
}

// Reconciler merges one observation into persisted state
type Reconciler interface {
	Reconcile(ctx context.Context, college *models.College, obs *models.Observation) (*service.ReconcileResult, error)
}

// InstanceSweeper transitions overdue deadline instances to missed
type InstanceSweeper interface {
	MarkMissed(ctx context.Context, asOf time.Time) (int64, error)
}

// RunStats summarizes one pass over the roster
type RunStats struct {
	CollegesAttempted   int       `json:"collegesAttempted"`
	ScrapesSucceeded    int       `json:"scrapesSucceeded"`
	ScrapesFailed       int       `json:"scrapesFailed"`
	ChangesDetected     int       `json:"changesDetected"`
	NotificationsSent   int       `json:"notificationsSent"`
	CollegesEscalated   int       `json:"collegesEscalated"`
	PersistenceFailures int       `json:"persistenceFailures"`
	InstancesMissed     int64     `json:"instancesMissed"`
	StartedAt           time.Time `json:"startedAt"`
	FinishedAt          time.Time `json:"finishedAt"`
}

// ScrapeWorkerConfig holds configuration for the scrape worker
type ScrapeWorkerConfig struct {
	Colleges    CollegeDirectory
	Source      adapter.ObservationSource
	Reconciler  Reconciler
	Sweeper     InstanceSweeper // optional; marks overdue instances missed after each run
	Schedule    string          // cron expression for scheduled runs
	Concurrency int             // pool size; 1 means strictly sequential
}

// ScrapeWorker drives scheduled and manual scrape runs. Runs are sequential
// by default; a bounded pool is available, with per-college mutual
// exclusion preserved either way.
type ScrapeWorker struct {
	colleges    CollegeDirectory
	source      adapter.ObservationSource
	reconciler  Reconciler
	sweeper     InstanceSweeper
	schedule    string
	concurrency int

	cron       *cron.Cron
	collegeMu  *KeyedMutex
	mu         sync.RWMutex
	running    bool
	runActive  bool
	lastRun    time.Time
	lastStats  *RunStats
}

// NewScrapeWorker creates a new scrape worker
func NewScrapeWorker(cfg *ScrapeWorkerConfig) (*ScrapeWorker, error) {
	if cfg.Colleges == nil {
		return nil, fmt.Errorf("college directory cannot be nil")
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("observation source cannot be nil")
	}
	if cfg.Reconciler == nil {
		return nil, fmt.Errorf("reconciler cannot be nil")
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	return &ScrapeWorker{
		colleges:    cfg.Colleges,
		source:      cfg.Source,
		reconciler:  cfg.Reconciler,
		sweeper:     cfg.Sweeper,
		schedule:    cfg.Schedule,
		concurrency: concurrency,
		collegeMu:   NewKeyedMutex(),
	}, nil
}

// Start registers the cron schedule and begins running. The ctx is carried
// into every scheduled run.
func (w *ScrapeWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("scrape worker is already running")
	}
	w.running = true
	w.mu.Unlock()

	logger := logging.FromContext(ctx)

	w.cron = cron.New()
	_, err := w.cron.AddFunc(w.schedule, func() {
		if _, runErr := w.RunOnce(ctx); runErr != nil {
			logger.WithError(runErr).Error("Scheduled scrape run failed")
		}
	})
	if err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return fmt.Errorf("invalid scrape schedule %q: %w", w.schedule, err)
	}

	w.cron.Start()
	logger.WithFields(map[string]interface{}{
		"schedule":    w.schedule,
		"concurrency": w.concurrency,
	}).Info("Scrape worker started")

	return nil
}

// Stop halts the schedule and waits for any in-flight run to finish.
func (w *ScrapeWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return fmt.Errorf("scrape worker is not running")
	}
	w.running = false
	w.mu.Unlock()

	stopCtx := w.cron.Stop()

	select {
	case <-stopCtx.Done():
		logging.FromContext(ctx).Info("Scrape worker stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(30 * time.Second):
		return fmt.Errorf("stop timeout: scrape run still in flight")
	}
}

// RunOnce performs one full pass over the roster. Per-college failures are
// absorbed into the stats; only roster listing errors and overlapping runs
// are reported as errors. Cancelling ctx abandons the remainder of the run.
func (w *ScrapeWorker) RunOnce(ctx context.Context) (*RunStats, error) {
	w.mu.Lock()
	if w.runActive {
		w.mu.Unlock()
		return nil, fmt.Errorf("a scrape run is already in progress")
	}
	w.runActive = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.runActive = false
		w.mu.Unlock()
	}()

	logger := logging.FromContext(ctx)
	stats := &RunStats{StartedAt: time.Now()}

	colleges, err := w.colleges.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list colleges: %w", err)
	}

	var (
		statsMu sync.Mutex
		wg      sync.WaitGroup
		sem     = make(chan struct{}, w.concurrency)
	)

	for _, college := range colleges {
		select {
		case <-ctx.Done():
			logger.Warn("Scrape run cancelled, abandoning remaining colleges")
			wg.Wait()
			return w.finishRun(stats), ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(college *models.College) {
			defer wg.Done()
			defer func() { <-sem }()

			result, err := w.processCollege(ctx, college)
			if err != nil {
				logging.FromContext(ctx).WithField("collegeId", college.ID).
					WithError(err).Error("Reconciliation failed to persist")
			}

			statsMu.Lock()
			stats.CollegesAttempted++
			if result != nil {
				if result.Success {
					stats.ScrapesSucceeded++
				} else {
					stats.ScrapesFailed++
				}
				stats.ChangesDetected += len(result.Changes)
				stats.NotificationsSent += result.NotificationsSent
				if result.Escalated {
					stats.CollegesEscalated++
				}
			} else {
				stats.PersistenceFailures++
			}
			statsMu.Unlock()
		}(college)
	}

	wg.Wait()

	if w.sweeper != nil {
		missed, sweepErr := w.sweeper.MarkMissed(ctx, time.Now().UTC())
		if sweepErr != nil {
			logger.WithError(sweepErr).Error("Failed to sweep overdue deadline instances")
		} else {
			stats.InstancesMissed = missed
		}
	}

	finished := w.finishRun(stats)
	logger.WithFields(map[string]interface{}{
		"attempted": finished.CollegesAttempted,
		"succeeded": finished.ScrapesSucceeded,
		"failed":    finished.ScrapesFailed,
		"changes":   finished.ChangesDetected,
		"escalated": finished.CollegesEscalated,
		"duration":  finished.FinishedAt.Sub(finished.StartedAt).String(),
	}).Info("Scrape run finished")

	return finished, nil
}

// RunCollege scrapes and reconciles a single college on demand, under the
// same per-college mutex as scheduled runs.
func (w *ScrapeWorker) RunCollege(ctx context.Context, collegeID string) (*service.ReconcileResult, error) {
	college, err := w.colleges.GetByID(ctx, collegeID)
	if err != nil {
		return nil, err
	}
	return w.processCollege(ctx, college)
}

// processCollege scrapes and reconciles one college under its mutex
func (w *ScrapeWorker) processCollege(ctx context.Context, college *models.College) (*service.ReconcileResult, error) {
	unlock := w.collegeMu.Lock(college.ID)
	defer unlock()

	obs, err := w.source.Scrape(ctx, college)
	if err != nil {
		// Only cancellation surfaces here; scrape failures come back as
		// unsuccessful observations.
		return nil, err
	}

	return w.reconciler.Reconcile(ctx, college, obs)
}

func (w *ScrapeWorker) finishRun(stats *RunStats) *RunStats {
	stats.FinishedAt = time.Now()

	w.mu.Lock()
	w.lastRun = stats.FinishedAt
	w.lastStats = stats
	w.mu.Unlock()

	return stats
}

// WorkerStatus reports the worker's current state
type WorkerStatus struct {
	Running     bool      `json:"running"`
	RunActive   bool      `json:"runActive"`
	Schedule    string    `json:"schedule"`
	Concurrency int       `json:"concurrency"`
	LastRunTime time.Time `json:"lastRunTime"`
	LastRun     *RunStats `json:"lastRun,omitempty"`
}

// Status returns the current worker status
func (w *ScrapeWorker) Status() *WorkerStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return &WorkerStatus{
		Running:     w.running,
		RunActive:   w.runActive,
		Schedule:    w.schedule,
		Concurrency: w.concurrency,
		LastRunTime: w.lastRun,
		LastRun:     w.lastStats,
	}
}
