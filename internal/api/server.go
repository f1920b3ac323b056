// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/deadline-tracker/internal/circuitbreaker"
	"github.com/deadline-tracker/internal/logging"
	"github.com/deadline-tracker/internal/models"
	"github.com/deadline-tracker/internal/service"
	"github.com/deadline-tracker/internal/worker"
)

// Service interfaces for dependency injection and testing

// CollegeReaderInterface defines the college read operations the API serves
type CollegeReaderInterface interface {
	List(ctx context.Context) ([]*models.College, error)
	GetByID(ctx context.Context, id string) (*models.College, error)
}

// DeadlineYearReaderInterface reads deadline-by-year records
type DeadlineYearReaderInterface interface {
	Get(ctx context.Context, collegeID string, year int) (*models.DeadlineYearRecord, error)
}

// ApplicationReaderInterface reads applications for population requests
type ApplicationReaderInterface interface {
	GetByID(ctx context.Context, id string) (*models.Application, error)
}

// ReviewQueueReaderInterface reads the manual review queue
type ReviewQueueReaderInterface interface {
	List(ctx context.Context, limit int) ([]*models.ManualReviewEntry, error)
}

// InstanceReaderInterface reads populated deadline instances
type InstanceReaderInterface interface {
	ListByApplication(ctx context.Context, applicationID string) ([]*models.DeadlineInstance, error)
}

// ScrapeLogReaderInterface reads the append-only scrape attempt stream
type ScrapeLogReaderInterface interface {
	RecentByCollege(ctx context.Context, collegeID string, limit int) ([]*models.ScrapeLogEntry, error)
}

// ScraperHealthInterface reports scraper circuit breaker state
type ScraperHealthInterface interface {
	BreakerState() circuitbreaker.State
}

// PopulationServiceInterface defines the auto-population operations
type PopulationServiceInterface interface {
	Populate(ctx context.Context, applicationID, collegeID string) (*service.PopulateResult, error)
	HasDeadlineData(ctx context.Context, collegeID string) (bool, error)
}

// ScrapeRunnerInterface triggers scrape runs and reports worker state
type ScrapeRunnerInterface interface {
	RunOnce(ctx context.Context) (*worker.RunStats, error)
	RunCollege(ctx context.Context, collegeID string) (*service.ReconcileResult, error)
	Status() *worker.WorkerStatus
}

// Server represents the HTTP API server.
type Server struct {
	router            *mux.Router
	httpServer        *http.Server
	colleges          CollegeReaderInterface
	deadlineYears     DeadlineYearReaderInterface
	applications      ApplicationReaderInterface
	reviewQueue       ReviewQueueReaderInterface
	instances         InstanceReaderInterface
	scrapeLogs        ScrapeLogReaderInterface
	populationService PopulationServiceInterface
	scrapeRunner      ScrapeRunnerInterface
	scraperHealth     ScraperHealthInterface
	config            *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// NewServer creates a new API server instance.
func NewServer(
	config *ServerConfig,
	colleges CollegeReaderInterface,
	deadlineYears DeadlineYearReaderInterface,
	applications ApplicationReaderInterface,
	reviewQueue ReviewQueueReaderInterface,
	instances InstanceReaderInterface,
	scrapeLogs ScrapeLogReaderInterface,
	populationService PopulationServiceInterface,
	scrapeRunner ScrapeRunnerInterface,
	scraperHealth ScraperHealthInterface,
) *Server {
	s := &Server{
		router:            mux.NewRouter(),
		colleges:          colleges,
		deadlineYears:     deadlineYears,
		applications:      applications,
		reviewQueue:       reviewQueue,
		instances:         instances,
		scrapeLogs:        scrapeLogs,
		populationService: populationService,
		scrapeRunner:      scrapeRunner,
		scraperHealth:     scraperHealth,
		config:            config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	// Set up middleware (order matters!)
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// API v1 routes
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// College endpoints
	api.HandleFunc("/colleges", s.handleListColleges).Methods("GET")
	api.HandleFunc("/colleges/{id}", s.handleGetCollege).Methods("GET")
	api.HandleFunc("/colleges/{id}/deadlines", s.handleGetDeadlines).Methods("GET")
	api.HandleFunc("/colleges/{id}/scrape-logs", s.handleScrapeLogs).Methods("GET")

	// Scrape run endpoints
	api.HandleFunc("/scrape/run", s.handleRunScrape).Methods("POST")
	api.HandleFunc("/scrape/status", s.handleScrapeStatus).Methods("GET")

	// Application population endpoints
	api.HandleFunc("/applications/{id}/populate", s.handlePopulate).Methods("POST")
	api.HandleFunc("/applications/{id}/deadlines", s.handleListInstances).Methods("GET")

	// Manual review queue
	api.HandleFunc("/review-queue", s.handleListReviewQueue).Methods("GET")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":         "healthy",
		"service":        "deadline-tracker",
		"scraperBreaker": string(s.scraperHealth.BreakerState()),
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the configured router for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
