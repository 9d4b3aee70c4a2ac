package handlers

import (
	"database/sql"
	"net/http"

	"github.com/mkweon/asset-tracker/internal/database"
)

// SystemHandler handles health checks.
type SystemHandler struct {
	db *sql.DB
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(db *sql.DB) *SystemHandler {
	return &SystemHandler{db: db}
}

// Health reports liveness, including database reachability.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := database.HealthCheck(h.db); err != nil {
		respondError(w, http.StatusServiceUnavailable, "Unhealthy", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
