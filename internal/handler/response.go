package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
//   writeJSON(w, http.StatusOK, data)
//   writeError(w, err)
//
// CONSISTENT ERROR FORMAT:
// Every error response from the API has the same shape:
//   {"error": "not_found", "message": "NGO not found"}
// Request validation failures add the rejected fields:
//   {"error": "validation_error", "message": "Validation error",
//    "errors": [{"field": "title", "message": "Required"}]}
//
// The frontend shows "message" directly, so messages are written for people.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/foodshare/pickup-api/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string                `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string                `json:"message"` // Human-readable description
	Errors  []apperror.FieldError `json:"errors,omitempty"`
}

// MessageResponse is the body of endpoints that only confirm an action.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set BEFORE the body. Once Encode writes,
// the headers are on the wire and later changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent, so we can only log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, MessageResponse{Message: message})
}

// errorStatus maps an error chain to its HTTP status and machine-readable type.
//
// ERROR MAPPING:
//
//	ErrValidation        → 400 validation_error
//	ErrConflict          → 400 conflict (duplicate email; clients expect 400)
//	ErrInvalidToken      → 400 invalid_token
//	ErrUnauthorized      → 401 unauthorized
//	ErrForbidden         → 403 forbidden
//	ErrNotFound          → 404 not_found
//	ErrInvalidTransition → 409 invalid_transition
//	ErrRateLimited       → 429 rate_limited
//	anything else        → 500 internal_error
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusBadRequest, "conflict"
	case errors.Is(err, apperror.ErrInvalidToken):
		return http.StatusBadRequest, "invalid_token"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, apperror.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// errors.As() walks the chain (via Unwrap) to find our *AppError, so a
// service may wrap with fmt.Errorf("...: %w", err) freely.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status, errorType := errorStatus(appErr)
		if status != http.StatusInternalServerError {
			resp := ErrorResponse{Error: errorType, Message: appErr.Message, Errors: appErr.Details}
			if len(resp.Errors) == 0 && appErr.Field != "" {
				resp.Errors = []apperror.FieldError{{Field: appErr.Field, Message: appErr.Message}}
			}
			writeJSON(w, status, resp)
			return
		}
	}

	// Unknown error: return a generic 500.
	// NEVER expose internal error details to the client: the raw message
	// might contain SQL, file paths or SMTP server replies.
	slog.Error("request failed", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
