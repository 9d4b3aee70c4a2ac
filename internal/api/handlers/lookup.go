package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/mkweon/asset-tracker/internal/apperrors"
	"github.com/mkweon/asset-tracker/internal/model"
	"github.com/mkweon/asset-tracker/internal/pricing"
)

// LookupHandler resolves ticker symbols to listed names.
type LookupHandler struct {
	quoter pricing.Quoter
}

// NewLookupHandler creates a new LookupHandler
func NewLookupHandler(quoter pricing.Quoter) *LookupHandler {
	return &LookupHandler{quoter: quoter}
}

// LookupResponse is the resolved symbol payload.
type LookupResponse struct {
	Symbol    string `json:"symbol"`
	Name      string `json:"name"`
	AssetType string `json:"asset_type"`
}

// Lookup resolves a symbol's name. Best-effort: the frontend treats
// failures as a silently skipped autofill.
func (h *LookupHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r); !ok {
		return
	}

	symbol := r.URL.Query().Get("symbol")
	assetType := r.URL.Query().Get("asset_type")
	if assetType == "" {
		assetType = model.TypeStock
	}

	result, err := h.quoter.Lookup(r.Context(), symbol, assetType)
	if errors.Is(err, apperrors.ErrInvalidLookupType) {
		respondError(w, http.StatusBadRequest, "Bad request", "asset_type must be 'stock' or 'kr_stock'")
		return
	}
	if errors.Is(err, apperrors.ErrSymbolNotFound) {
		respondError(w, http.StatusNotFound, "Not found", fmt.Sprintf("Symbol not found: %s", symbol))
		return
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, LookupResponse{
		Symbol:    result.Symbol,
		Name:      result.Name,
		AssetType: result.AssetType,
	})
}
