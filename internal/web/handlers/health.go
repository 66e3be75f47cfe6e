package handlers

import (
	"net/http"

	"github.com/kozaktomas/photo-finder/internal/engine"
)

// HealthHandler reports process liveness and the active embedding backend.
type HealthHandler struct {
	engine *engine.Service
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(svc *engine.Service) *HealthHandler {
	return &HealthHandler{engine: svc}
}

// Health handles the health check endpoint.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"backend": h.engine.BackendName(),
		"mode":    string(h.engine.Mode()),
	})
}
