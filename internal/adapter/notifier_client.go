package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/deadline-tracker/internal/config"
	"github.com/deadline-tracker/internal/errors"
	"github.com/deadline-tracker/internal/retry"
)

// NotifierClient talks to the external notification service. Delivery is
// best-effort: the reconciliation engine swallows any error this returns.
type NotifierClient struct {
	baseURL    string
	client     *http.Client
	timeout    time.Duration
	maxRetries int
}

// NewNotifierClient creates a notifier client from configuration
func NewNotifierClient(cfg *config.NotifierConfig) *NotifierClient {
	return &NotifierClient{
		baseURL: cfg.BaseURL,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		timeout:    cfg.RequestTimeout,
		maxRetries: cfg.MaxRetries,
	}
}

// NotifyDeadlineChange delivers one change notification to one user,
// retrying transient failures with backoff up to the configured budget.
func (c *NotifierClient) NotifyDeadlineChange(ctx context.Context, n *DeadlineChangeNotification) error {
	cfg := retry.DefaultRetryConfig()
	if c.maxRetries > 0 {
		cfg.MaxAttempts = c.maxRetries
	}

	result := retry.WithExponentialBackoff(ctx, cfg, func(ctx context.Context, attempt int) error {
		return c.deliver(ctx, n)
	})
	if !result.Success {
		return errors.NewNotificationError(n.UserID, result.LastError)
	}
	return nil
}

func (c *NotifierClient) deliver(ctx context.Context, n *DeadlineChangeNotification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/notifications/deadline-change", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("notification request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("notifier returned status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	return nil
}
