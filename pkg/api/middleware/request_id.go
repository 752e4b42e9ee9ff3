// Package middleware provides the HTTP middleware chain of the livecheck API.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/goclaw/livecheck/pkg/logger"
)

// RequestIDHeader carries the request ID in and out.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLength = 128

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestID reuses a well-formed inbound X-Request-ID or generates one,
// echoes it on the response, and attaches a request-scoped logger to the
// context.
func RequestID(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" || len(id) > maxRequestIDLength {
				id = uuid.NewString()
			}

			ctx := context.WithValue(r.Context(), requestIDKey, id)
			ctx = log.With("request_id", id).WithContext(ctx)
			w.Header().Set(RequestIDHeader, id)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetRequestID returns the request ID stored in ctx, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
