package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/deadline-tracker/internal/adapter"
	"github.com/deadline-tracker/internal/models"
	"github.com/deadline-tracker/internal/storage"
)

// Mock stores for testing

type mockCollegeStore struct {
	colleges map[string]*models.College
	updates  int
	failNext error
}

func newMockCollegeStore(colleges ...*models.College) *mockCollegeStore {
	m := &mockCollegeStore{colleges: make(map[string]*models.College)}
	for _, c := range colleges {
		m.colleges[c.ID] = c
	}
	return m
}

func (m *mockCollegeStore) GetByID(ctx context.Context, id string) (*models.College, error) {
	if c, ok := m.colleges[id]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("college %s: %w", id, storage.ErrNotFound)
}

func (m *mockCollegeStore) Update(ctx context.Context, college *models.College) error {
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	m.updates++
	m.colleges[college.ID] = college
	return nil
}

type yearKey struct {
	collegeID string
	year      int
}

type mockYearStore struct {
	records map[yearKey]*models.DeadlineYearRecord
}

func newMockYearStore(records ...*models.DeadlineYearRecord) *mockYearStore {
	m := &mockYearStore{records: make(map[yearKey]*models.DeadlineYearRecord)}
	for _, r := range records {
		m.records[yearKey{r.CollegeID, r.ApplicationYear}] = r
	}
	return m
}

func (m *mockYearStore) Get(ctx context.Context, collegeID string, year int) (*models.DeadlineYearRecord, error) {
	if r, ok := m.records[yearKey{collegeID, year}]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, fmt.Errorf("deadline record for college %s year %d: %w", collegeID, year, storage.ErrNotFound)
}

func (m *mockYearStore) Exists(ctx context.Context, collegeID string, year int) (bool, error) {
	_, ok := m.records[yearKey{collegeID, year}]
	return ok, nil
}

// mockCommitter records committed state; shares the record map with an
// optional mockYearStore so commits are visible to later reads.
type mockCommitter struct {
	years    *mockYearStore
	colleges *mockCollegeStore
	commits  int
	failNext error
}

func (m *mockCommitter) CommitReconciliation(ctx context.Context, college *models.College, rec *models.DeadlineYearRecord) error {
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	m.commits++
	if m.years != nil {
		copied := *rec
		m.years.records[yearKey{rec.CollegeID, rec.ApplicationYear}] = &copied
	}
	if m.colleges != nil {
		m.colleges.colleges[college.ID] = college
	}
	return nil
}

type mockLogStore struct {
	entries  []*models.ScrapeLogEntry
	failNext error
}

func (m *mockLogStore) Append(ctx context.Context, entry *models.ScrapeLogEntry) error {
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	m.entries = append(m.entries, entry)
	return nil
}

type mockReviewStore struct {
	entries []*models.ManualReviewEntry
}

func (m *mockReviewStore) Create(ctx context.Context, entry *models.ManualReviewEntry) error {
	m.entries = append(m.entries, entry)
	return nil
}

type mockAppStore struct {
	userIDs map[string][]string
}

func (m *mockAppStore) DistinctUserIDsByCollege(ctx context.Context, collegeID string) ([]string, error) {
	return m.userIDs[collegeID], nil
}

type notifyCall struct {
	userID       string
	deadlineType string
	oldDate      string
	newDate      string
}

type mockNotifier struct {
	mu       sync.Mutex
	calls    []notifyCall
	failFor  map[string]bool // userIDs whose deliveries fail
	failAll  bool
	failNext error
}

func (m *mockNotifier) NotifyDeadlineChange(ctx context.Context, n *adapter.DeadlineChangeNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, notifyCall{
		userID:       n.UserID,
		deadlineType: n.DeadlineType,
		oldDate:      n.OldDate,
		newDate:      n.NewDate,
	})

	if m.failAll || m.failFor[n.UserID] {
		return fmt.Errorf("delivery failed for user %s", n.UserID)
	}
	return nil
}

type mockCache struct {
	records     map[yearKey]*models.DeadlineYearRecord
	invalidated []yearKey
	sets        int
}

func newMockCache() *mockCache {
	return &mockCache{records: make(map[yearKey]*models.DeadlineYearRecord)}
}

func (m *mockCache) GetDeadlineYear(ctx context.Context, collegeID string, year int) (*models.DeadlineYearRecord, error) {
	if r, ok := m.records[yearKey{collegeID, year}]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, nil
}

func (m *mockCache) SetDeadlineYear(ctx context.Context, rec *models.DeadlineYearRecord) error {
	copied := *rec
	m.records[yearKey{rec.CollegeID, rec.ApplicationYear}] = &copied
	m.sets++
	return nil
}

func (m *mockCache) InvalidateDeadlineYear(ctx context.Context, collegeID string, year int) error {
	delete(m.records, yearKey{collegeID, year})
	m.invalidated = append(m.invalidated, yearKey{collegeID, year})
	return nil
}

type mockInstanceStore struct {
	batches  [][]*models.DeadlineInstance
	failNext error
}

func (m *mockInstanceStore) InsertBatch(ctx context.Context, instances []*models.DeadlineInstance) error {
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		// All-or-nothing: a failed batch records no instances.
		return err
	}
	m.batches = append(m.batches, instances)
	return nil
}

func (m *mockInstanceStore) all() []*models.DeadlineInstance {
	var out []*models.DeadlineInstance
	for _, b := range m.batches {
		out = append(out, b...)
	}
	return out
}
