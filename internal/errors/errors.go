// Package errors provides the categorized error taxonomy for the deadline
// tracker. Scrape failures and missing deadline data are normal outcomes
// communicated as result values; only database errors propagate as fatal
// for a college's run.
package errors

import (
	"fmt"
	"net/http"

	"github.com/deadline-tracker/internal/types"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryScraper represents observation source failures (recoverable,
	// drives the escalation counter)
	CategoryScraper ErrorCategory = "scraper"
	// CategoryNotification represents notification delivery failures
	// (logged and swallowed, never affects reconciliation outcome)
	CategoryNotification ErrorCategory = "notification"
	// CategoryDatabase represents storage errors (fatal for the current
	// college's run)
	CategoryDatabase ErrorCategory = "database"
	// CategoryCache represents cache errors
	CategoryCache ErrorCategory = "cache"
	// CategoryValidation represents validation errors
	CategoryValidation ErrorCategory = "validation"
	// CategoryNotFound represents not found errors
	CategoryNotFound ErrorCategory = "not_found"
	// CategorySystem represents unexpected internal errors
	CategorySystem ErrorCategory = "system"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// ToServiceError converts to a ServiceError
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	return &types.ServiceError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// NewScraperError creates a scraper (observation source) error
func NewScraperError(collegeID string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryScraper,
		StatusCode: http.StatusBadGateway,
		Code:       "SCRAPER_ERROR",
		Message:    fmt.Sprintf("scraper failed for college %s", collegeID),
		Cause:      cause,
		Details: map[string]interface{}{
			"collegeId": collegeID,
		},
	}
}

// NewScraperTimeoutError creates a scraper timeout error
func NewScraperTimeoutError(collegeID string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryScraper,
		StatusCode: http.StatusGatewayTimeout,
		Code:       "SCRAPER_TIMEOUT",
		Message:    fmt.Sprintf("scraper timed out for college %s", collegeID),
		Details: map[string]interface{}{
			"collegeId": collegeID,
		},
	}
}

// NewNotificationError creates a notification delivery error
func NewNotificationError(userID string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryNotification,
		StatusCode: http.StatusBadGateway,
		Code:       "NOTIFICATION_ERROR",
		Message:    fmt.Sprintf("failed to notify user %s", userID),
		Cause:      cause,
		Details: map[string]interface{}{
			"userId": userID,
		},
	}
}

// NewDatabaseError creates a database error
func NewDatabaseError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryDatabase,
		StatusCode: http.StatusInternalServerError,
		Code:       "DATABASE_ERROR",
		Message:    fmt.Sprintf("database error during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewCacheError creates a cache error
func NewCacheError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryCache,
		StatusCode: http.StatusInternalServerError,
		Code:       "CACHE_ERROR",
		Message:    fmt.Sprintf("cache error during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewInvalidParameterError creates an invalid parameter error
func NewInvalidParameterError(param string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_PARAMETER",
		Message:    fmt.Sprintf("invalid parameter '%s': %s", param, reason),
		Details: map[string]interface{}{
			"parameter": param,
			"reason":    reason,
		},
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string, id string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryNotFound,
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found: %s", resource, id),
		Details: map[string]interface{}{
			"resource": resource,
			"id":       id,
		},
	}
}

// NewInternalError creates an internal error
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Cause:      cause,
	}
}

// Categorize categorizes an existing error
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}
	if catErr, ok := err.(*CategorizedError); ok {
		return catErr
	}
	return NewInternalError("unexpected error", err)
}

// GetHTTPStatusCode returns the HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	if catErr := Categorize(err); catErr != nil {
		return catErr.StatusCode
	}
	return http.StatusInternalServerError
}

// IsRetryable determines if an error is worth retrying
func IsRetryable(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}
	switch catErr.Category {
	case CategoryScraper, CategoryNotification, CategoryDatabase, CategoryCache:
		return true
	case CategorySystem:
		return catErr.StatusCode == http.StatusServiceUnavailable ||
			catErr.StatusCode == http.StatusGatewayTimeout
	default:
		return false
	}
}
