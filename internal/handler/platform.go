package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/truefolio/truefolio/internal/auth"
	"github.com/truefolio/truefolio/internal/model"
	"github.com/truefolio/truefolio/internal/service"
)

// PlatformHandler exposes connecting and listing external platforms.
type PlatformHandler struct {
	platforms *service.PlatformService
	logger    *slog.Logger
}

func NewPlatformHandler(platforms *service.PlatformService, logger *slog.Logger) *PlatformHandler {
	return &PlatformHandler{platforms: platforms, logger: logger}
}

// connectRequest is the body of POST /api/platforms/connect.
type connectRequest struct {
	Platform string `json:"platform"` // "github", "leetcode", "linkedin", "twitter"
	URL      string `json:"url"`      // full profile URL as pasted by the user
}

// HandleConnect links a platform profile to the logged-in user.
//
// HTTP: POST /api/platforms/connect (auth required)
// BODY: {"platform": "github", "url": "https://github.com/octocat"}
//
// Reconnecting overwrites the previous connection for that platform.
func (h *PlatformHandler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	conn, err := h.platforms.Connect(r.Context(), userID, req.Platform, req.URL)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, conn)
}

// HandleList returns the user's connected platforms.
//
// HTTP: GET /api/platforms (auth required)
func (h *PlatformHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	conns, err := h.platforms.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if conns == nil {
		conns = []model.PlatformConnection{}
	}

	writeJSON(w, http.StatusOK, conns)
}
