package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mkweon/asset-tracker/internal/model"
	"github.com/mkweon/asset-tracker/internal/service"
)

// AssetHandler handles asset CRUD and single-asset refresh requests.
type AssetHandler struct {
	assetService *service.AssetService
}

// NewAssetHandler creates a new AssetHandler
func NewAssetHandler(assetService *service.AssetService) *AssetHandler {
	return &AssetHandler{assetService: assetService}
}

// List returns all assets of the authenticated user.
func (h *AssetHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	assets, err := h.assetService.List(user.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, assets)
}

// Create adds a new asset.
func (h *AssetHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var payload model.AssetCreate
	if !decodeJSON(w, r, &payload) {
		return
	}

	asset, err := h.assetService.Create(r.Context(), user.ID, payload)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, asset)
}

// Update applies a partial update to an asset.
func (h *AssetHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var payload model.AssetUpdate
	if !decodeJSON(w, r, &payload) {
		return
	}

	asset, err := h.assetService.Update(user.ID, chi.URLParam(r, "assetID"), payload)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, asset)
}

// Delete removes an asset.
func (h *AssetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.assetService.Delete(user.ID, chi.URLParam(r, "assetID")); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Refresh re-fetches one asset's price.
func (h *AssetHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	asset, err := h.assetService.RefreshOne(r.Context(), user.ID, chi.URLParam(r, "assetID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, asset)
}
