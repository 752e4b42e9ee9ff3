// Package handlers provides HTTP request handlers.
package handlers

import (
	"net/http"
	"time"

	"github.com/goclaw/livecheck/pkg/api/models"
	"github.com/goclaw/livecheck/pkg/api/response"
	"github.com/goclaw/livecheck/pkg/livecheck"
	"github.com/goclaw/livecheck/pkg/version"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	app     *livecheck.App
	started time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(app *livecheck.App) *HealthHandler {
	return &HealthHandler{
		app:     app,
		started: time.Now(),
	}
}

// Health handles the /health endpoint (liveness probe).
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.app.ShouldStop() {
		response.JSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "stopping",
		})
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Ready handles the /ready endpoint (readiness probe).
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ready := !h.app.ShouldStop() && h.app.Bus().Healthy()
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, status, map[string]bool{
		"ready": ready,
	})
}

// Status handles the /status endpoint (detailed status).
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	stopping := h.app.ShouldStop()
	healthy := h.app.Bus().Healthy()

	state := "ok"
	switch {
	case stopping:
		state = "stopping"
	case !healthy:
		state = "degraded"
	}

	response.JSON(w, http.StatusOK, models.StatusResponse{
		Status:     state,
		Stopping:   stopping,
		BusHealthy: healthy,
		Partitions: h.app.Bus().Partitions(),
		Cases:      len(h.app.Cases()),
		Uptime:     time.Since(h.started).Round(time.Second).String(),
		Version:    version.Info(),
	})
}
