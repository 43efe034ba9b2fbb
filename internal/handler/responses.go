package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/osse101/CardVault_Go/internal/domain"
	"github.com/osse101/CardVault_Go/internal/logger"
)

// Standard response types for consistent API responses

// SuccessResponse represents a simple successful operation message
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// DataResponse represents a response with data payload
type DataResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data"`
}

// respondJSON sends a JSON response with the given status code and payload
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	// Get a buffer from the pool to reduce allocations
	buf := getBuffer()
	defer putBuffer(buf)

	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		// Headers are already sent, so the error can only be logged
		slog.Error("Failed to encode JSON response", "error", err)
		return
	}

	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("Failed to write response buffer", "error", err)
	}
}

// respondData wraps a payload in a DataResponse
func respondData(w http.ResponseWriter, status int, data interface{}) {
	respondJSON(w, status, DataResponse{Data: data})
}

// respondError sends a JSON error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// respondServiceError logs a service error and writes its mapped status and message
func respondServiceError(w http.ResponseWriter, r *http.Request, opName string, err error) {
	status, msg := mapServiceErrorToUserMessage(err)
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error(opName+" failed", "error", err)
	} else {
		log.Warn(opName+" rejected", "error", err, "status", status)
	}
	respondError(w, status, msg)
}

// User-facing error messages for service errors
const (
	ErrMsgGenericServerError    = "Something went wrong"
	ErrMsgInvalidRequestError   = "Invalid request. Please check your inputs."
	ErrMsgUnauthorizedError     = "Authentication required"
	ErrMsgSessionConflictError  = "An audit is already in progress"
	ErrMsgSessionNotFoundError  = "Audit not found or no longer active"
	ErrMsgItemNotFoundError     = "Audit item not found"
	ErrMsgStackNotFoundError    = "Card stack not found"
	ErrMsgInvalidQuantityError  = "Invalid quantity"
	ErrMsgInsufficientError     = "Not enough copies in the source location"
	ErrMsgIdentityNotFoundError = "Card not found in the catalog"
	ErrMsgSameLocationError     = "Source and destination must differ"
	ErrMsgNotFoundError         = "No matching copy found"
)

// mapServiceErrorToUserMessage maps domain errors to user-friendly HTTP responses.
// Unknown errors become a generic 500 and are only logged in detail.
func mapServiceErrorToUserMessage(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, ErrMsgGenericServerError
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, ErrMsgUnauthorizedError
	case errors.Is(err, domain.ErrSessionConflict):
		return http.StatusConflict, ErrMsgSessionConflictError
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, ErrMsgSessionNotFoundError
	case errors.Is(err, domain.ErrItemNotFound):
		return http.StatusNotFound, ErrMsgItemNotFoundError
	case errors.Is(err, domain.ErrStackNotFound):
		return http.StatusNotFound, ErrMsgStackNotFoundError
	case errors.Is(err, domain.ErrInsufficientSource):
		return http.StatusConflict, ErrMsgInsufficientError
	case errors.Is(err, domain.ErrIdentityNotFound):
		return http.StatusNotFound, ErrMsgIdentityNotFoundError
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, ErrMsgNotFoundError
	case errors.Is(err, domain.ErrInvalidQuantity):
		return http.StatusBadRequest, ErrMsgInvalidQuantityError
	case errors.Is(err, domain.ErrSameLocation):
		return http.StatusBadRequest, ErrMsgSameLocationError
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, ErrMsgInvalidRequestError
	}
	return http.StatusInternalServerError, ErrMsgGenericServerError
}
