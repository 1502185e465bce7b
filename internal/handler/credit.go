package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/truefolio/truefolio/internal/auth"
	"github.com/truefolio/truefolio/internal/service"
)

// CreditHandler exposes the credit balance and (mock) purchase endpoints.
type CreditHandler struct {
	credits *service.CreditService
	logger  *slog.Logger
}

func NewCreditHandler(credits *service.CreditService, logger *slog.Logger) *CreditHandler {
	return &CreditHandler{credits: credits, logger: logger}
}

// HandleBalance returns the user's remaining generation credits.
//
// HTTP: GET /api/credits (auth required)
func (h *CreditHandler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	balance, err := h.credits.Balance(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"balance": balance})
}

type purchaseRequest struct {
	Pack string `json:"pack"` // "starter" or "pro"
}

// HandlePurchase credits the user with a pack. No payment provider is wired
// in; this endpoint simulates a completed purchase.
//
// HTTP: POST /api/credits/purchase (auth required)
// BODY: {"pack": "starter"}
func (h *CreditHandler) HandlePurchase(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	balance, err := h.credits.Purchase(r.Context(), userID, req.Pack)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"balance": balance})
}
