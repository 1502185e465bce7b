package handler

// RESPONSE HELPERS:
// Every handler sends JSON through these two functions so the wire format
// stays uniform.
//
// Error responses always have the same shape:
//   {"error": "not_found", "message": "card not found"}
// so the frontend can parse any failure the same way regardless of status.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/truefolio/truefolio/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable type, e.g. "not_found"
	Message string `json:"message"` // human-readable description
}

// writeJSON sends a JSON response with the given status code.
// Headers and status must be written before the body: once Encode writes,
// header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError translates a domain error into an HTTP status.
//
// This is the single place domain errors meet HTTP. The service layer
// returns apperror sentinels; errors.Is walks the wrap chain, so services
// are free to add context with fmt.Errorf("...: %w", err) at every level.
//
// Upstream failures (the platform APIs or the completion API misbehaving)
// map to 502: the problem is on the far side of us, and the client's
// request was fine.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
			errorType = "unauthorized"
		case errors.Is(err, apperror.ErrInsufficientCredits):
			status = http.StatusPaymentRequired
			errorType = "insufficient_credits"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			errorType = "forbidden"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			errorType = "conflict"
		case errors.Is(err, apperror.ErrNoPlatforms):
			status = http.StatusPreconditionFailed
			errorType = "no_platforms_connected"
		case errors.Is(err, apperror.ErrAllRefreshesFailed):
			status = http.StatusBadGateway
			errorType = "all_refreshes_failed"
		case errors.Is(err, apperror.ErrMalformedAI):
			status = http.StatusBadGateway
			errorType = "malformed_ai_response"
		case errors.Is(err, apperror.ErrUpstream):
			status = http.StatusBadGateway
			errorType = "upstream_error"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		})
		return
	}

	// Unknown error — generic 500. The raw message might contain SQL or
	// internal paths, so it never reaches the client.
	slog.Error("unhandled internal error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
