package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// MetricsRecorder records HTTP request metrics.
type MetricsRecorder interface {
	RecordHTTPRequest(ctx context.Context, method, path, status string, duration time.Duration)
	IncActiveConnections()
	DecActiveConnections()
}

// Metrics records request counts and latency labelled by chi route pattern,
// which keeps case and key path segments out of the label space.
func Metrics(recorder MetricsRecorder, skipPaths ...string) func(http.Handler) http.Handler {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			recorder.IncActiveConnections()
			defer recorder.DecActiveConnections()

			sw := wrapWriter(w)
			defer func() {
				status := sw.status
				rec := recover()
				if rec != nil {
					status = http.StatusInternalServerError
				}
				recorder.RecordHTTPRequest(r.Context(), r.Method, routePattern(r), strconv.Itoa(status), time.Since(start))
				if rec != nil {
					panic(rec)
				}
			}()

			next.ServeHTTP(sw, r)
		})
	}
}
