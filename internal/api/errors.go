package api

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/deadline-tracker/internal/errors"
	"github.com/deadline-tracker/internal/storage"
	"github.com/deadline-tracker/internal/types"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error types.ServiceError `json:"error"`
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error: types.ServiceError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}

	json.NewEncoder(w).Encode(response)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// parseJSONBody parses JSON request body.
func parseJSONBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// Common error codes
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// respondServiceError maps a service or storage error to an HTTP response.
func respondServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, err.Error(), nil)
		return
	}

	var catErr *apperrors.CategorizedError
	if errors.As(err, &catErr) {
		respondError(w, catErr.StatusCode, catErr.Code, catErr.Message, catErr.Details)
		return
	}

	respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "An internal error occurred", nil)
}
