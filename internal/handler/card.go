package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/truefolio/truefolio/internal/auth"
	"github.com/truefolio/truefolio/internal/model"
	"github.com/truefolio/truefolio/internal/service"
)

// CardHandler exposes the portfolio card endpoints.
//
// Everything here requires auth EXCEPT HandleShare: share links are followed
// by the public, so recording a share must work without a session.
type CardHandler struct {
	cards  *service.CardService
	logger *slog.Logger
}

func NewCardHandler(cards *service.CardService, logger *slog.Logger) *CardHandler {
	return &CardHandler{cards: cards, logger: logger}
}

type createCardRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	IsPublic    bool   `json:"isPublic"` // omitted → private
}

// HandleCreate makes a card from the user's current insight snapshot.
//
// HTTP: POST /api/cards (auth required)
// BODY: {"title": "My 2026 portfolio", "description": "...", "isPublic": true}
func (h *CardHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req createCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	card, err := h.cards.Create(r.Context(), userID, req.Title, req.Description, req.IsPublic)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, card)
}

// HandleList returns the user's cards, newest first.
//
// HTTP: GET /api/cards (auth required)
func (h *CardHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	cards, err := h.cards.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if cards == nil {
		cards = []model.PortfolioCard{}
	}

	writeJSON(w, http.StatusOK, cards)
}

// HandleDelete removes one of the user's cards.
//
// HTTP: DELETE /api/cards/{id} (auth required)
// A card that doesn't exist and a card owned by someone else both return
// the same 404.
func (h *CardHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	cardID := r.PathValue("id")
	if cardID == "" {
		http.Error(w, "Card ID is required", http.StatusBadRequest)
		return
	}

	if err := h.cards.Delete(r.Context(), userID, cardID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type visibilityRequest struct {
	IsPublic bool `json:"isPublic"`
}

// HandleSetVisibility toggles whether a card is publicly viewable.
//
// HTTP: PATCH /api/cards/{id}/visibility (auth required)
// BODY: {"isPublic": true}
func (h *CardHandler) HandleSetVisibility(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	cardID := r.PathValue("id")
	if cardID == "" {
		http.Error(w, "Card ID is required", http.StatusBadRequest)
		return
	}

	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if err := h.cards.SetVisibility(r.Context(), userID, cardID, req.IsPublic); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"isPublic": req.IsPublic})
}

// HandleShare bumps a card's share counter.
//
// HTTP: POST /api/cards/{id}/share (NO auth)
// Anyone following a share link hits this, so it is deliberately outside
// the RequireAuth group.
func (h *CardHandler) HandleShare(w http.ResponseWriter, r *http.Request) {
	cardID := r.PathValue("id")
	if cardID == "" {
		http.Error(w, "Card ID is required", http.StatusBadRequest)
		return
	}

	if err := h.cards.RecordShare(r.Context(), cardID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "share recorded"})
}
