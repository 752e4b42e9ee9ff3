package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goclaw/livecheck/config"
	"github.com/goclaw/livecheck/pkg/api/handlers"
	"github.com/goclaw/livecheck/pkg/api/middleware"
	"github.com/goclaw/livecheck/pkg/bus"
	"github.com/goclaw/livecheck/pkg/livecheck"
	"github.com/goclaw/livecheck/pkg/logger"
	"github.com/goclaw/livecheck/pkg/store/memory"
)

type approval struct {
	By string `json:"by"`
}

type reviewCase struct {
	Approved *livecheck.Signal[approval] `signal:"approved"`
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Server.RateLimit = config.RateLimitConfig{Enabled: false}
	return cfg
}

func newTestHandlers(t *testing.T) (*Handlers, *livecheck.App, *reviewCase) {
	t.Helper()
	b := bus.NewLocalBus(2, 16)
	t.Cleanup(func() { _ = b.Close() })

	app, err := livecheck.New(memory.New(), b,
		livecheck.WithLogger(logger.Nop()),
		livecheck.WithPollInterval(20*time.Millisecond),
	)
	require.NoError(t, err)
	t.Cleanup(app.Stop)

	def := &reviewCase{}
	_, err = app.Register("review", def)
	require.NoError(t, err)

	return &Handlers{
		Health: handlers.NewHealthHandler(app),
		Cases:  handlers.NewCaseHandler(app, logger.Nop()),
	}, app, def
}

type countingRecorder struct {
	mu    sync.Mutex
	paths []string
}

func (c *countingRecorder) RecordHTTPRequest(_ context.Context, _, path, _ string, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = append(c.paths, path)
}

func (c *countingRecorder) IncActiveConnections() {}
func (c *countingRecorder) DecActiveConnections() {}

func TestNewRouter_Routes(t *testing.T) {
	h, _, _ := newTestHandlers(t)
	h.MetricsHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	r := NewRouter(testConfig(), logger.Nop(), h)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/ready", http.StatusOK},
		{http.MethodGet, "/status", http.StatusOK},
		{http.MethodGet, "/api/v1/cases", http.StatusOK},
		{http.MethodGet, "/api/v1/cases/review", http.StatusOK},
		{http.MethodGet, "/api/v1/cases/review/resolved/pr-1", http.StatusNotFound},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/swagger/index.html", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
		})
	}
}

func TestNewRouter_MetricsSkipProbes(t *testing.T) {
	h, _, _ := newTestHandlers(t)
	rec := &countingRecorder{}
	h.Metrics = rec
	r := NewRouter(testConfig(), logger.Nop(), h)

	for _, p := range []string{"/health", "/ready", "/api/v1/cases/review"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	assert.Equal(t, []string{"/api/v1/cases/{case}"}, rec.paths)
}

func TestNewRouter_RateLimitsPublish(t *testing.T) {
	h, _, _ := newTestHandlers(t)
	cfg := testConfig()
	cfg.Server.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 1}
	r := NewRouter(cfg, logger.Nop(), h)

	publish := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cases/review/signals/approved/events",
			strings.NewReader(`{"key":"pr-1","value":{"by":"ana"}}`))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	require.Equal(t, http.StatusAccepted, publish())
	assert.Equal(t, http.StatusTooManyRequests, publish())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/cases", nil))
	assert.Equal(t, http.StatusOK, w.Code, "reads are not throttled")
}

func TestRouter_PublishResolvesWaiter(t *testing.T) {
	h, app, def := newTestHandlers(t)
	r := NewRouter(testConfig(), logger.Nop(), h)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go func() { _ = app.Run(ctx) }()

	type result struct {
		v   approval
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := def.Approved.Wait(ctx, livecheck.WithKey("pr-7"), livecheck.WithTimeout(3*time.Second))
		done <- result{v, err}
	}()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cases/review/signals/approved/events",
		strings.NewReader(`{"key":"pr-7","value":{"by":"sam"}}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, "sam", res.v.By)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/cases/review/resolved/pr-7", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, map[string]any{"by": "sam"}, body["value"])
}
