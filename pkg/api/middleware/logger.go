package middleware

import (
	"net/http"
	"time"

	"github.com/goclaw/livecheck/pkg/logger"
)

// Logger logs one line per request using the request-scoped logger.
func Logger() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := wrapWriter(w)

			next.ServeHTTP(sw, r)

			log := logger.FromContext(r.Context())
			args := []any{
				"method", r.Method,
				"route", routePattern(r),
				"path", r.URL.Path,
				"status", sw.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"size", sw.size,
				"remote_addr", r.RemoteAddr,
			}
			if sw.status >= http.StatusInternalServerError {
				log.ErrorContext(r.Context(), "http request", args...)
				return
			}
			log.InfoContext(r.Context(), "http request", args...)
		})
	}
}
