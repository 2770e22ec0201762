package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/gosoularr/internal/controllers"
	"github.com/amaumene/gosoularr/internal/models"
)

// StatusHandler reports the state of the most recent sweep
type StatusHandler struct {
	db     *models.Database
	stats  *controllers.RunStats
	logger *logrus.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(db *models.Database, stats *controllers.RunStats, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{
		db:     db,
		stats:  stats,
		logger: logger,
	}
}

// StatusResponse represents the status response
type StatusResponse struct {
	LastSweep controllers.Stats      `json:"last_sweep"`
	Denylist  []models.DenylistEntry `json:"denylist"`
}

// ServeHTTP handles the status endpoint
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entries, err := h.db.DenylistEntries()
	if err != nil {
		h.logger.WithError(err).Error("Failed to load denylist entries")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := StatusResponse{
		LastSweep: h.stats.Snapshot(),
		Denylist:  entries,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
