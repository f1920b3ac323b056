package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deadline-tracker/internal/circuitbreaker"
	"github.com/deadline-tracker/internal/models"
	"github.com/deadline-tracker/internal/service"
	"github.com/deadline-tracker/internal/storage"
	"github.com/deadline-tracker/internal/types"
	"github.com/deadline-tracker/internal/worker"
)

type stubColleges struct {
	colleges map[string]*models.College
}

func (s *stubColleges) List(ctx context.Context) ([]*models.College, error) {
	out := make([]*models.College, 0, len(s.colleges))
	for _, c := range s.colleges {
		out = append(out, c)
	}
	return out, nil
}

func (s *stubColleges) GetByID(ctx context.Context, id string) (*models.College, error) {
	if c, ok := s.colleges[id]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("college %s: %w", id, storage.ErrNotFound)
}

type stubYears struct {
	records map[int]*models.DeadlineYearRecord
}

func (s *stubYears) Get(ctx context.Context, collegeID string, year int) (*models.DeadlineYearRecord, error) {
	if r, ok := s.records[year]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("deadline record for year %d: %w", year, storage.ErrNotFound)
}

type stubApplications struct {
	apps map[string]*models.Application
}

func (s *stubApplications) GetByID(ctx context.Context, id string) (*models.Application, error) {
	if a, ok := s.apps[id]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("application %s: %w", id, storage.ErrNotFound)
}

type stubReviewQueue struct {
	entries []*models.ManualReviewEntry
}

func (s *stubReviewQueue) List(ctx context.Context, limit int) ([]*models.ManualReviewEntry, error) {
	return s.entries, nil
}

type stubPopulation struct {
	result *service.PopulateResult
	calls  []string
}

func (s *stubPopulation) Populate(ctx context.Context, applicationID, collegeID string) (*service.PopulateResult, error) {
	s.calls = append(s.calls, applicationID+"/"+collegeID)
	return s.result, nil
}

func (s *stubPopulation) HasDeadlineData(ctx context.Context, collegeID string) (bool, error) {
	return s.result != nil, nil
}

type stubRunner struct {
	status     *worker.WorkerStatus
	runResult  *service.ReconcileResult
	runErr     error
	fullRuns   int
	singleRuns []string
}

func (s *stubRunner) RunOnce(ctx context.Context) (*worker.RunStats, error) {
	s.fullRuns++
	return &worker.RunStats{}, nil
}

func (s *stubRunner) RunCollege(ctx context.Context, collegeID string) (*service.ReconcileResult, error) {
	s.singleRuns = append(s.singleRuns, collegeID)
	return s.runResult, s.runErr
}

func (s *stubRunner) Status() *worker.WorkerStatus {
	if s.status != nil {
		return s.status
	}
	return &worker.WorkerStatus{Running: true}
}

type stubInstances struct {
	instances map[string][]*models.DeadlineInstance
}

func (s *stubInstances) ListByApplication(ctx context.Context, applicationID string) ([]*models.DeadlineInstance, error) {
	return s.instances[applicationID], nil
}

type stubScrapeLogs struct {
	entries []*models.ScrapeLogEntry
	limits  []int
}

func (s *stubScrapeLogs) RecentByCollege(ctx context.Context, collegeID string, limit int) ([]*models.ScrapeLogEntry, error) {
	s.limits = append(s.limits, limit)
	return s.entries, nil
}

type stubScraperHealth struct {
	state circuitbreaker.State
}

func (s *stubScraperHealth) BreakerState() circuitbreaker.State {
	return s.state
}

type apiFixture struct {
	server     *Server
	colleges   *stubColleges
	years      *stubYears
	apps       *stubApplications
	reviews    *stubReviewQueue
	instances  *stubInstances
	scrapeLogs *stubScrapeLogs
	population *stubPopulation
	runner     *stubRunner
}

func newTestServer(t *testing.T) *apiFixture {
	t.Helper()

	f := &apiFixture{
		colleges: &stubColleges{colleges: map[string]*models.College{
			"college-1": {ID: "college-1", Name: "Example University"},
		}},
		years: &stubYears{records: map[int]*models.DeadlineYearRecord{}},
		apps: &stubApplications{apps: map[string]*models.Application{
			"app-1": {ID: "app-1", UserID: "user-1", CollegeID: "college-1"},
		}},
		reviews:    &stubReviewQueue{},
		instances:  &stubInstances{instances: map[string][]*models.DeadlineInstance{}},
		scrapeLogs: &stubScrapeLogs{},
		population: &stubPopulation{result: &service.PopulateResult{Success: true, Message: "Added 2 deadlines for Example University."}},
		runner:     &stubRunner{runResult: &service.ReconcileResult{Success: true}},
	}

	f.server = NewServer(
		&ServerConfig{Host: "127.0.0.1", Port: "0"},
		f.colleges, f.years, f.apps, f.reviews, f.instances, f.scrapeLogs,
		f.population, f.runner, &stubScraperHealth{state: circuitbreaker.StateClosed},
	)

	return f
}

func doRequest(t *testing.T, server *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	f := newTestServer(t)

	rec := doRequest(t, f.server, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "closed", body["scraperBreaker"])
}

func TestHandleListColleges(t *testing.T) {
	f := newTestServer(t)

	rec := doRequest(t, f.server, "GET", "/api/v1/colleges", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Colleges []*models.College `json:"colleges"`
		Count    int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Colleges, 1)
	assert.Equal(t, "Example University", body.Colleges[0].Name)
}

func TestHandleGetCollege(t *testing.T) {
	f := newTestServer(t)

	rec := doRequest(t, f.server, "GET", "/api/v1/colleges/college-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, f.server, "GET", "/api/v1/colleges/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, ErrCodeNotFound, body.Error.Code)
}

func TestHandleGetDeadlines(t *testing.T) {
	f := newTestServer(t)
	f.years.records[2026] = &models.DeadlineYearRecord{
		CollegeID:       "college-1",
		ApplicationYear: 2026,
	}

	rec := doRequest(t, f.server, "GET", "/api/v1/colleges/college-1/deadlines?year=2026", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var record models.DeadlineYearRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	assert.Equal(t, 2026, record.ApplicationYear)

	// Missing record for a valid college is 404, not 500.
	rec = doRequest(t, f.server, "GET", "/api/v1/colleges/college-1/deadlines?year=1999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Unknown college is 404 before the record lookup.
	rec = doRequest(t, f.server, "GET", "/api/v1/colleges/missing/deadlines?year=2026", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, f.server, "GET", "/api/v1/colleges/college-1/deadlines?year=soon", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRunScrape_SingleCollege(t *testing.T) {
	f := newTestServer(t)

	rec := doRequest(t, f.server, "POST", "/api/v1/scrape/run", map[string]string{"collegeId": "college-1"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"college-1"}, f.runner.singleRuns)

	var result service.ReconcileResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
}

func TestHandleRunScrape_FullRun(t *testing.T) {
	f := newTestServer(t)

	rec := doRequest(t, f.server, "POST", "/api/v1/scrape/run", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	// The run is detached; give it a moment to be recorded.
	assert.Eventually(t, func() bool {
		return f.runner.fullRuns == 1
	}, time.Second, 10*time.Millisecond)
}

func TestHandleRunScrape_RejectsOverlap(t *testing.T) {
	f := newTestServer(t)
	f.runner.status = &worker.WorkerStatus{Running: true, RunActive: true}

	rec := doRequest(t, f.server, "POST", "/api/v1/scrape/run", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 0, f.runner.fullRuns)
}

func TestHandlePopulate(t *testing.T) {
	f := newTestServer(t)

	rec := doRequest(t, f.server, "POST", "/api/v1/applications/app-1/populate", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"app-1/college-1"}, f.population.calls)

	var result service.PopulateResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)

	rec = doRequest(t, f.server, "POST", "/api/v1/applications/missing/populate", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleListInstances(t *testing.T) {
	f := newTestServer(t)
	f.instances.instances["app-1"] = []*models.DeadlineInstance{
		{ID: "inst-1", ApplicationID: "app-1", Type: types.DeadlineRD, Description: "Regular Decision application deadline"},
	}

	rec := doRequest(t, f.server, "GET", "/api/v1/applications/app-1/deadlines", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Deadlines []*models.DeadlineInstance `json:"deadlines"`
		Count     int                        `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Deadlines, 1)
	assert.Equal(t, "inst-1", body.Deadlines[0].ID)

	rec = doRequest(t, f.server, "GET", "/api/v1/applications/missing/deadlines", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleScrapeLogs(t *testing.T) {
	f := newTestServer(t)
	f.scrapeLogs.entries = []*models.ScrapeLogEntry{
		{CollegeID: "college-1", Success: true, DeadlinesFound: 3},
	}

	rec := doRequest(t, f.server, "GET", "/api/v1/colleges/college-1/scrape-logs", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{defaultScrapeLogLimit}, f.scrapeLogs.limits)

	var body struct {
		Entries []*models.ScrapeLogEntry `json:"entries"`
		Count   int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)

	rec = doRequest(t, f.server, "GET", "/api/v1/colleges/college-1/scrape-logs?limit=5", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{defaultScrapeLogLimit, 5}, f.scrapeLogs.limits)

	rec = doRequest(t, f.server, "GET", "/api/v1/colleges/missing/scrape-logs", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, f.server, "GET", "/api/v1/colleges/college-1/scrape-logs?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleListReviewQueue(t *testing.T) {
	f := newTestServer(t)
	f.reviews.entries = []*models.ManualReviewEntry{
		{ID: "entry-1", CollegeID: "college-1", Reason: "Repeated scraping failures"},
	}

	rec := doRequest(t, f.server, "GET", "/api/v1/review-queue", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Entries []*models.ManualReviewEntry `json:"entries"`
		Count   int                         `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)

	rec = doRequest(t, f.server, "GET", "/api/v1/review-queue?limit=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
