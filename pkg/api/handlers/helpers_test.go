package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/goclaw/livecheck/pkg/bus"
	"github.com/goclaw/livecheck/pkg/livecheck"
	"github.com/goclaw/livecheck/pkg/logger"
	"github.com/goclaw/livecheck/pkg/store/memory"
)

type payment struct {
	Amount int `json:"amount"`
}

type checkoutSignals struct {
	Paid    *livecheck.Signal[payment] `signal:"paid"`
	Shipped *livecheck.Signal[string]  `signal:"shipped"`
}

func newTestApp(t *testing.T) (*livecheck.App, *bus.LocalBus) {
	t.Helper()
	b := bus.NewLocalBus(2, 16)
	t.Cleanup(func() { _ = b.Close() })

	app, err := livecheck.New(memory.New(), b,
		livecheck.WithLogger(logger.Nop()),
		livecheck.WithPollInterval(20*time.Millisecond),
	)
	require.NoError(t, err)
	t.Cleanup(app.Stop)
	return app, b
}

func registerCheckout(t *testing.T, app *livecheck.App) *checkoutSignals {
	t.Helper()
	def := &checkoutSignals{}
	_, err := app.Register("checkout", def)
	require.NoError(t, err)
	return def
}

func caseRouter(h *CaseHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/v1/cases", h.ListCases)
	r.Get("/api/v1/cases/{case}", h.GetCase)
	r.Get("/api/v1/cases/{case}/resolved/{key}", h.GetResolved)
	r.Post("/api/v1/cases/{case}/signals/{signal}/events", h.Publish)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}
