package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/mkweon/asset-tracker/internal/model"
	"github.com/mkweon/asset-tracker/internal/service"
)

// TotalsHandler handles the historical totals series and snapshots.
type TotalsHandler struct {
	totalsService *service.TotalsService
}

// NewTotalsHandler creates a new TotalsHandler
func NewTotalsHandler(totalsService *service.TotalsService) *TotalsHandler {
	return &TotalsHandler{totalsService: totalsService}
}

// Totals returns one page of aggregated period totals, newest first.
func (h *TotalsHandler) Totals(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	period, limit, offset := queryPage(r, 12)

	points, err := h.totalsService.Points(user.ID, period, limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, points)
}

// Detail returns one page of period totals with per-asset values.
func (h *TotalsHandler) Detail(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	period, limit, offset := queryPage(r, 10)

	detail, err := h.totalsService.Detail(user.ID, period, limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, detail)
}

// Snapshot records an immutable period point from freshly fetched prices.
func (h *TotalsHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	point, err := h.totalsService.Snapshot(r.Context(), user.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, point)
}

// queryPage extracts period/limit/offset query parameters.
func queryPage(r *http.Request, defaultLimit int) (period string, limit, offset int) {
	period = strings.ToLower(r.URL.Query().Get("period"))
	if period == "" {
		period = model.PeriodDaily
	}

	limit = defaultLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		limit = v
	}
	offset = 0
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
		offset = v
	}
	return period, limit, offset
}
