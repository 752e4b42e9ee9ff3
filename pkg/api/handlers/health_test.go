package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goclaw/livecheck/pkg/api/models"
)

func TestHealthHandler_Health(t *testing.T) {
	app, _ := newTestApp(t)
	h := NewHealthHandler(app)

	w := do(t, http.HandlerFunc(h.Health), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok"`)

	app.Stop()
	w = do(t, http.HandlerFunc(h.Health), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "stopping")
}

func TestHealthHandler_Ready(t *testing.T) {
	app, b := newTestApp(t)
	h := NewHealthHandler(app)

	w := do(t, http.HandlerFunc(h.Ready), http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, b.Close())
	w = do(t, http.HandlerFunc(h.Ready), http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"ready":false}`, w.Body.String())
}

func TestHealthHandler_Status(t *testing.T) {
	app, _ := newTestApp(t)
	registerCheckout(t, app)
	h := NewHealthHandler(app)

	w := do(t, http.HandlerFunc(h.Status), http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var status models.StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "ok", status.Status)
	assert.True(t, status.BusHealthy)
	assert.Equal(t, 2, status.Partitions)
	assert.Equal(t, 1, status.Cases)
	assert.NotEmpty(t, status.Version["version"])
}
