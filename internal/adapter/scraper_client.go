package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/deadline-tracker/internal/circuitbreaker"
	"github.com/deadline-tracker/internal/config"
	"github.com/deadline-tracker/internal/logging"
	"github.com/deadline-tracker/internal/models"
	"golang.org/x/time/rate"
)

// ScraperClient talks to the external scraper service that fetches a
// college's deadlines page and extracts a structured observation.
type ScraperClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	breaker *circuitbreaker.CircuitBreaker
	timeout time.Duration
}

// NewScraperClient creates a scraper client from configuration
func NewScraperClient(cfg *config.ScraperConfig) *ScraperClient {
	return &ScraperClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig("scraper")),
		timeout: cfg.RequestTimeout,
	}
}

// scrapeRequest is the request body sent to the scraper service
type scrapeRequest struct {
	CollegeID        string  `json:"collegeId"`
	CollegeName      string  `json:"collegeName"`
	DeadlinesPageURL *string `json:"deadlinesPageUrl,omitempty"`
}

// Scrape fetches a fresh observation for the college. Transport errors,
// timeouts, non-2xx responses and an open circuit breaker all degrade to a
// failed observation carrying the error text, so the reconciliation engine
// follows its normal failure/escalation path.
func (c *ScraperClient) Scrape(ctx context.Context, college *models.College) (*models.Observation, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait cancelled: %w", err)
	}

	started := time.Now()

	var obs *models.Observation
	err := c.breaker.Execute(ctx, func() error {
		var execErr error
		obs, execErr = c.doScrape(ctx, college)
		return execErr
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		logging.FromContext(ctx).WithFields(map[string]interface{}{
			"collegeId": college.ID,
			"error":     err.Error(),
		}).Warn("Scrape attempt failed")
		return &models.Observation{
			Success:    false,
			Error:      err.Error(),
			DurationMs: time.Since(started).Milliseconds(),
		}, nil
	}

	if obs.DurationMs == 0 {
		obs.DurationMs = time.Since(started).Milliseconds()
	}
	return obs, nil
}

func (c *ScraperClient) doScrape(ctx context.Context, college *models.College) (*models.Observation, error) {
	reqBody, err := json.Marshal(&scrapeRequest{
		CollegeID:        college.ID,
		CollegeName:      college.Name,
		DeadlinesPageURL: college.DeadlinesPageURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scrape request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/scrape", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to build scrape request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("scraper request timed out after %s", c.timeout)
		}
		return nil, fmt.Errorf("scraper request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read scraper response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scraper returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var obs models.Observation
	if err := json.Unmarshal(body, &obs); err != nil {
		return nil, fmt.Errorf("failed to decode scraper response: %w", err)
	}

	return &obs, nil
}

// BreakerState exposes the scraper circuit breaker state for health checks
func (c *ScraperClient) BreakerState() circuitbreaker.State {
	return c.breaker.GetState()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
