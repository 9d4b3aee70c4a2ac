package handlers

import (
	"net/http"

	"github.com/mkweon/asset-tracker/internal/service"
)

// SummaryHandler handles the summary view and the bulk price refresh.
type SummaryHandler struct {
	assetService *service.AssetService
}

// NewSummaryHandler creates a new SummaryHandler
func NewSummaryHandler(assetService *service.AssetService) *SummaryHandler {
	return &SummaryHandler{assetService: assetService}
}

// Summary returns the aggregate portfolio view from stored prices.
func (h *SummaryHandler) Summary(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	summary, err := h.assetService.Summary(user.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// Refresh re-fetches every asset price and returns the new summary.
// Per-symbol failures appear in the summary's errors list, not as an HTTP
// failure.
func (h *SummaryHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	summary, err := h.assetService.Refresh(r.Context(), user.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}
