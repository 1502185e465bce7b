package handler

import (
	"log/slog"
	"net/http"

	"github.com/truefolio/truefolio/internal/auth"
	"github.com/truefolio/truefolio/internal/service"
)

// InsightHandler exposes the insight generation endpoints.
type InsightHandler struct {
	insights *service.InsightService
	logger   *slog.Logger
}

func NewInsightHandler(insights *service.InsightService, logger *slog.Logger) *InsightHandler {
	return &InsightHandler{insights: insights, logger: logger}
}

// HandleGenerate runs the cache-aware generation path.
//
// HTTP: POST /api/insights/generate (auth required)
//
// RESPONSE: {"report": {...}, "cached": true, "ageDays": 3}
// A cached response costs nothing and makes no external calls; the client
// can tell from the flags whether this report is new.
func (h *InsightHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	result, err := h.insights.Generate(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleRefresh forces a refresh: re-fetch every connected platform, then
// regenerate regardless of how fresh the current snapshot is.
//
// HTTP: POST /api/insights/refresh (auth required)
func (h *InsightHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	result, err := h.insights.ForceRefresh(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleGet returns the current snapshot without triggering generation.
//
// HTTP: GET /api/insights (auth required)
// 404 if the user has never generated insights.
func (h *InsightHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	snapshot, err := h.insights.Latest(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}
