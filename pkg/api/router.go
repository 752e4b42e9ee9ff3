// Package api provides HTTP API server components.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/goclaw/livecheck/config"
	"github.com/goclaw/livecheck/pkg/api/handlers"
	"github.com/goclaw/livecheck/pkg/api/middleware"
	"github.com/goclaw/livecheck/pkg/logger"
)

// Handlers holds all HTTP handlers.
type Handlers struct {
	// Health handles health check endpoints
	Health *handlers.HealthHandler

	// Cases handles case inspection and publish endpoints
	Cases *handlers.CaseHandler

	// WebSocket serves the resolution feed
	WebSocket *handlers.WebSocketHandler

	// Metrics is the optional metrics recorder
	Metrics middleware.MetricsRecorder

	// MetricsHandler serves the Prometheus exposition, mounted at MetricsPath
	MetricsHandler http.Handler
	MetricsPath    string
}

// probePaths are excluded from tracing and request metrics.
var probePaths = []string{"/health", "/ready"}

// NewRouter creates a new chi router with middleware and routes.
func NewRouter(cfg *config.Config, log logger.Logger, h *Handlers) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID(log))
	r.Use(middleware.Recovery())
	r.Use(middleware.Tracing(probePaths...))
	r.Use(middleware.Logger())

	if h.Metrics != nil {
		skip := append([]string{metricsPath(h)}, probePaths...)
		r.Use(middleware.Metrics(h.Metrics, skip...))
	}

	r.Use(middleware.CORS(cfg.Server.CORS))

	var limiter *middleware.RateLimiter
	if rl := cfg.Server.RateLimit; rl.Enabled && rl.RequestsPerSecond > 0 {
		limiter = middleware.NewRateLimiter(rl.RequestsPerSecond, rl.Burst)
	}

	RegisterRoutes(r, h, limiter)
	return r
}

// RegisterRoutes registers all API routes. A nil limiter leaves the publish
// endpoint unthrottled.
func RegisterRoutes(r chi.Router, h *Handlers, limiter *middleware.RateLimiter) {
	r.Route("/api/v1", func(r chi.Router) {
		if h.Cases != nil {
			r.Route("/cases", func(r chi.Router) {
				r.Get("/", h.Cases.ListCases)
				r.Get("/{case}", h.Cases.GetCase)
				r.Get("/{case}/resolved/{key}", h.Cases.GetResolved)

				r.Group(func(r chi.Router) {
					if limiter != nil {
						r.Use(middleware.RateLimit(limiter))
					}
					r.Post("/{case}/signals/{signal}/events", h.Cases.Publish)
				})
			})
		}
	})

	if h.WebSocket != nil {
		r.Get("/ws/resolutions", h.WebSocket.ServeHTTP)
	}

	// Health check routes (not versioned)
	if h.Health != nil {
		r.Get("/health", h.Health.Health)
		r.Get("/ready", h.Health.Ready)
		r.Get("/status", h.Health.Status)
	}

	if h.MetricsHandler != nil {
		r.Handle(metricsPath(h), h.MetricsHandler)
	}
}

func metricsPath(h *Handlers) string {
	if h.MetricsPath == "" {
		return "/metrics"
	}
	return h.MetricsPath
}
