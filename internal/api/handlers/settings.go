package handlers

import (
	"net/http"

	"github.com/mkweon/asset-tracker/internal/service"
)

// SettingsHandler manages stored pricing provider credentials.
type SettingsHandler struct {
	settingsService *service.SettingsService
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(settingsService *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

// PricingSettingsRequest is the payload for storing a provider key.
type PricingSettingsRequest struct {
	FinnhubAPIKey string `json:"finnhub_api_key"`
}

// GetPricing reports the configured provider key, masked.
func (h *SettingsHandler) GetPricing(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r); !ok {
		return
	}

	respondJSON(w, http.StatusOK, h.settingsService.FinnhubState())
}

// PutPricing stores a provider key encrypted at rest.
func (h *SettingsHandler) PutPricing(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r); !ok {
		return
	}

	var req PricingSettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.FinnhubAPIKey == "" {
		respondError(w, http.StatusBadRequest, "Bad request", "finnhub_api_key is required")
		return
	}

	if err := h.settingsService.SetFinnhubKey(req.FinnhubAPIKey); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.settingsService.FinnhubState())
}
