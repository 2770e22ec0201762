package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/gosoularr/internal/services/slskd"
)

// HealthHandler reports daemon liveness and slskd reachability
type HealthHandler struct {
	slskdClient *slskd.Client
	logger      *logrus.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(slskdClient *slskd.Client, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{
		slskdClient: slskdClient,
		logger:      logger,
	}
}

// ServeHTTP handles the health check endpoint
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]string{
		"status": "healthy",
	}

	if version, err := h.slskdClient.Version(); err != nil {
		h.logger.WithError(err).Warn("Health check could not reach slskd")
		response["status"] = "degraded"
		response["slskd"] = "unreachable"
	} else {
		response["slskd"] = version
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
