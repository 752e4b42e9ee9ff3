package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goclaw/livecheck/pkg/api/models"
	"github.com/goclaw/livecheck/pkg/api/response"
	"github.com/goclaw/livecheck/pkg/bus"
	"github.com/goclaw/livecheck/pkg/event"
	"github.com/goclaw/livecheck/pkg/livecheck"
	"github.com/goclaw/livecheck/pkg/logger"
)

func TestCaseHandler_ListAndGet(t *testing.T) {
	app, _ := newTestApp(t)
	registerCheckout(t, app)
	_, err := app.Register("billing", &struct {
		Charged *livecheck.Signal[int]
	}{})
	require.NoError(t, err)

	r := caseRouter(NewCaseHandler(app, logger.Nop()))

	w := do(t, r, http.MethodGet, "/api/v1/cases", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list models.CaseListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 2, list.Total)
	assert.Equal(t, "billing", list.Cases[0].Name)
	assert.Equal(t, "checkout", list.Cases[1].Name)
	assert.Equal(t, []string{"paid", "shipped"}, list.Cases[1].Signals)

	w = do(t, r, http.MethodGet, "/api/v1/cases/checkout", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/cases/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCaseHandler_GetCaseShowsExecution(t *testing.T) {
	app, _ := newTestApp(t)
	registerCheckout(t, app)
	c, ok := app.Case("checkout")
	require.True(t, ok)
	exec := c.BeginWithID("run-1")
	defer c.End()

	w := do(t, caseRouter(NewCaseHandler(app, logger.Nop())), http.MethodGet, "/api/v1/cases/checkout", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.CaseResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Execution)
	assert.Equal(t, exec.ID, resp.Execution.ID)
}

func TestCaseHandler_GetResolved(t *testing.T) {
	app, _ := newTestApp(t)
	def := registerCheckout(t, app)
	r := caseRouter(NewCaseHandler(app, logger.Nop()))

	w := do(t, r, http.MethodGet, "/api/v1/cases/checkout/resolved/order-1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	ev, err := event.New("paid", "checkout", "order-1", []byte(`{"amount":12}`))
	require.NoError(t, err)
	require.NoError(t, def.Paid.Resolve(context.Background(), "order-1", ev))

	w = do(t, r, http.MethodGet, "/api/v1/cases/checkout/resolved/order-1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.ResolvedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, ev.ID, resp.EventID)
	assert.Equal(t, "paid", resp.Signal)
	assert.Equal(t, map[string]any{"amount": float64(12)}, resp.Value)
	assert.Empty(t, resp.RawValue)
}

func TestCaseHandler_Publish(t *testing.T) {
	app, b := newTestApp(t)
	registerCheckout(t, app)
	r := caseRouter(NewCaseHandler(app, logger.Nop()))

	ch, err := b.Subscribe(context.Background(), bus.Partition("order-9", b.Partitions()))
	require.NoError(t, err)

	w := do(t, r, http.MethodPost, "/api/v1/cases/checkout/signals/paid/events", `{"key":"order-9","value":{"amount":3}}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var resp models.PublishResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "paid", resp.Signal)

	select {
	case ev := <-ch:
		assert.Equal(t, resp.EventID, ev.ID)
		assert.Equal(t, "checkout", ev.CaseName)
		assert.JSONEq(t, `{"amount":3}`, string(ev.Value))
	case <-time.After(time.Second):
		t.Fatal("published event never reached the bus")
	}
}

func TestCaseHandler_PublishRejections(t *testing.T) {
	app, b := newTestApp(t)
	registerCheckout(t, app)
	r := caseRouter(NewCaseHandler(app, logger.Nop()))

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"unknown case", "/api/v1/cases/nope/signals/paid/events", `{"key":"k","value":1}`, http.StatusNotFound, response.ErrCodeNotFound},
		{"unknown signal", "/api/v1/cases/checkout/signals/nope/events", `{"key":"k","value":1}`, http.StatusNotFound, response.ErrCodeNotFound},
		{"malformed body", "/api/v1/cases/checkout/signals/paid/events", `{`, http.StatusBadRequest, response.ErrCodeBadRequest},
		{"missing key", "/api/v1/cases/checkout/signals/paid/events", `{"value":1}`, http.StatusBadRequest, response.ErrCodeValidationFailed},
		{"missing value", "/api/v1/cases/checkout/signals/paid/events", `{"key":"k"}`, http.StatusBadRequest, response.ErrCodeValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, tt.path, tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			var resp response.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}

	t.Run("closed bus", func(t *testing.T) {
		require.NoError(t, b.Close())
		w := do(t, r, http.MethodPost, "/api/v1/cases/checkout/signals/paid/events", `{"key":"k","value":1}`)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
