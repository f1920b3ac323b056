package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/deadline-tracker/internal/logging"
)

// defaultScrapeLogLimit caps scrape history responses when no limit is given
const defaultScrapeLogLimit = 20

// handleListColleges handles GET /api/v1/colleges
func (s *Server) handleListColleges(w http.ResponseWriter, r *http.Request) {
	colleges, err := s.colleges.List(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"colleges": colleges,
		"count":    len(colleges),
	})
}

// handleGetCollege handles GET /api/v1/colleges/{id}
func (s *Server) handleGetCollege(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	college, err := s.colleges.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, college)
}

// handleGetDeadlines handles GET /api/v1/colleges/{id}/deadlines?year=
// The year defaults to the current calendar year.
func (s *Server) handleGetDeadlines(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	year := time.Now().UTC().Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "year must be an integer", nil)
			return
		}
		year = parsed
	}

	// The college must exist even when no deadline record does.
	if _, err := s.colleges.GetByID(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}

	record, err := s.deadlineYears.Get(r.Context(), id, year)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, record)
}

// handleScrapeLogs handles GET /api/v1/colleges/{id}/scrape-logs?limit=
func (s *Server) handleScrapeLogs(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	limit := defaultScrapeLogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "limit must be a positive integer", nil)
			return
		}
		limit = parsed
	}

	if _, err := s.colleges.GetByID(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}

	entries, err := s.scrapeLogs.RecentByCollege(r.Context(), id, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// runScrapeRequest is the optional body of POST /api/v1/scrape/run
type runScrapeRequest struct {
	CollegeID string `json:"collegeId"`
}

// handleRunScrape handles POST /api/v1/scrape/run. With a collegeId the run
// is synchronous and the reconciliation result is returned; without one a
// full roster run is started in the background.
func (s *Server) handleRunScrape(w http.ResponseWriter, r *http.Request) {
	var req runScrapeRequest
	if r.ContentLength > 0 {
		if err := parseJSONBody(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "invalid request body", nil)
			return
		}
	}

	if req.CollegeID != "" {
		result, err := s.scrapeRunner.RunCollege(r.Context(), req.CollegeID)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, result)
		return
	}

	if s.scrapeRunner.Status().RunActive {
		respondError(w, http.StatusConflict, ErrCodeConflict, "a scrape run is already in progress", nil)
		return
	}

	// The run outlives this request; detach it from the request context.
	go func() {
		if _, err := s.scrapeRunner.RunOnce(context.Background()); err != nil {
			logging.WithError(err).Error("Manually triggered scrape run failed")
		}
	}()

	respondJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// handleScrapeStatus handles GET /api/v1/scrape/status
func (s *Server) handleScrapeStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.scrapeRunner.Status())
}

// handlePopulate handles POST /api/v1/applications/{id}/populate
func (s *Server) handlePopulate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	app, err := s.applications.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	result, err := s.populationService.Populate(r.Context(), app.ID, app.CollegeID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleListInstances handles GET /api/v1/applications/{id}/deadlines
func (s *Server) handleListInstances(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if _, err := s.applications.GetByID(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}

	instances, err := s.instances.ListByApplication(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"deadlines": instances,
		"count":     len(instances),
	})
}

// handleListReviewQueue handles GET /api/v1/review-queue
func (s *Server) handleListReviewQueue(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "limit must be a non-negative integer", nil)
			return
		}
		limit = parsed
	}

	entries, err := s.reviewQueue.List(r.Context(), limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}
