package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/mkweon/asset-tracker/internal/apperrors"
	custommiddleware "github.com/mkweon/asset-tracker/internal/api/middleware"
	"github.com/mkweon/asset-tracker/internal/model"
	"github.com/mkweon/asset-tracker/internal/service"
)

// respondJSON sends a JSON response with the given status code
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("Failed to encode JSON: %v", err)
		}
	}
}

// respondError sends an error response. The detail field carries the
// user-facing message; the frontend reads detail before error.
func respondError(w http.ResponseWriter, status int, message, detail string) {
	respondJSON(w, status, map[string]string{
		"error":  message,
		"detail": detail,
	})
}

// currentUser returns the authenticated user or writes a 401. Routes
// reaching handlers always sit behind BearerAuth; the guard covers wiring
// mistakes.
func currentUser(w http.ResponseWriter, r *http.Request) (model.User, bool) {
	user, ok := custommiddleware.UserFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized", "Invalid token")
	}
	return user, ok
}

// decodeJSON parses a request body, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return false
	}
	return true
}

// respondServiceError maps service-layer errors to HTTP responses. Price
// fetch failures keep their Korean detail verbatim.
func respondServiceError(w http.ResponseWriter, err error) {
	var priceErr *service.PriceError

	switch {
	case errors.Is(err, apperrors.ErrAssetNotFound):
		respondError(w, http.StatusNotFound, "Not found", "Asset not found")
	case errors.Is(err, apperrors.ErrInvalidPeriod):
		respondError(w, http.StatusBadRequest, "Bad request", "Invalid period")
	case errors.Is(err, apperrors.ErrInvalidAssetType):
		respondError(w, http.StatusBadRequest, "Bad request", "Asset type required")
	case errors.Is(err, apperrors.ErrUnsupportedCrypto):
		respondError(w, http.StatusBadRequest, "Bad request", "Only BTC is supported")
	case errors.Is(err, apperrors.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "Bad request", "Quantity must be positive")
	case errors.Is(err, apperrors.ErrInvalidLookupType):
		respondError(w, http.StatusBadRequest, "Bad request", "asset_type must be 'stock' or 'kr_stock'")
	case errors.As(err, &priceErr):
		respondError(w, http.StatusInternalServerError, "Price fetch failed", priceErr.Error())
	default:
		respondError(w, http.StatusInternalServerError, "Internal server error", err.Error())
	}
}
