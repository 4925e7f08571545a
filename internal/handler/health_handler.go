package handler

import (
	"context"
	"net/http"
	"time"

	"visitstats/internal/container"
	"visitstats/pkg/logger"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	checks  map[string]container.HealthCheck
	backend string
	logger  *logger.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(c *container.Container) *HealthHandler {
	return &HealthHandler{
		checks:  c.HealthChecks(),
		backend: c.GetConfig().StoreBackend,
		logger:  c.GetLogger(),
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Service   string            `json:"service"`
	Backend   string            `json:"backend"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Health check requested")

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   "1.0.0",
		Service:   "visitstats",
		Backend:   h.backend,
	}
	statusCode := http.StatusOK

	if len(h.checks) > 0 {
		response.Checks = make(map[string]string, len(h.checks))
	}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.WithError(err).WithField("dependency", name).Warn("Health check failed")
			response.Checks[name] = "unhealthy"
			response.Status = "degraded"
			statusCode = http.StatusServiceUnavailable
			continue
		}
		response.Checks[name] = "healthy"
	}

	writeJSON(w, h.logger, statusCode, response)
}
