package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/goclaw/livecheck/pkg/bus"
	"github.com/goclaw/livecheck/pkg/livecheck"
)

var (
	_ livecheck.MetricsRecorder = (*Manager)(nil)
	_ bus.MetricsRecorder       = (*Manager)(nil)
)

func scrape(t *testing.T, m *Manager) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	return w.Body.String()
}

func TestNewManager(t *testing.T) {
	m := NewManager(DefaultConfig())
	if !m.Enabled() {
		t.Error("Expected metrics to be enabled")
	}
	if m.Registry() == nil {
		t.Error("Expected a registry")
	}
}

func TestNewManager_Disabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false

	m := NewManager(cfg)
	if m.Enabled() {
		t.Error("Expected metrics to be disabled")
	}
}

func TestSignalMetricsExposed(t *testing.T) {
	m := NewManager(DefaultConfig())

	m.RecordSignalSent("order_paid")
	m.RecordSignalResolved("order_paid")
	m.RecordSignalWait("order_paid", livecheck.OutcomeResolved, 150*time.Millisecond)
	m.RecordSignalWait("order_paid", livecheck.OutcomeTimeout, 2*time.Second)
	m.RecordDispatchDropped("unknown_case")

	body := scrape(t, m)
	expected := []string{
		`signal_sent_total{signal="order_paid"} 1`,
		`signal_resolved_total{signal="order_paid"} 1`,
		`signal_wait_total{outcome="resolved",signal="order_paid"} 1`,
		`signal_wait_total{outcome="timeout",signal="order_paid"} 1`,
		"signal_wait_duration_seconds_bucket",
		`signal_dispatch_dropped_total{reason="unknown_case"} 1`,
	}
	for _, metric := range expected {
		if !strings.Contains(body, metric) {
			t.Errorf("expected %q in metrics output", metric)
		}
	}
}

func TestBusMetricsExposed(t *testing.T) {
	m := NewManager(DefaultConfig())

	m.RecordBusPublished("redis")
	m.RecordBusDelivered("redis")
	m.RecordBusFailed("local", "bus_closed")

	body := scrape(t, m)
	expected := []string{
		`bus_published_total{mode="redis"} 1`,
		`bus_delivered_total{mode="redis"} 1`,
		`bus_failures_total{mode="local",reason="bus_closed"} 1`,
	}
	for _, metric := range expected {
		if !strings.Contains(body, metric) {
			t.Errorf("expected %q in metrics output", metric)
		}
	}
}

func TestHTTPMetricsExposed(t *testing.T) {
	m := NewManager(DefaultConfig())

	m.IncActiveConnections()
	m.RecordHTTPRequest(context.Background(), "GET", "/api/v1/cases", "200", 5*time.Millisecond)
	m.DecActiveConnections()

	body := scrape(t, m)
	for _, metric := range []string{"http_requests_total", "http_request_duration_seconds", "http_active_connections"} {
		if !strings.Contains(body, metric) {
			t.Errorf("expected metric %s not found in output", metric)
		}
	}
}

func TestMetricsHandler_Disabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false

	m := NewManager(cfg)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 when disabled, got %d", w.Code)
	}
}

func TestStartServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()

	m := NewManager(DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- m.StartServer(ctx, port, "/metrics")
	}()

	var resp *http.Response
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err = http.Get("http://127.0.0.1:" + strconv.Itoa(port) + "/metrics")
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("Failed to fetch metrics: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("Server error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("server did not stop")
	}
}

func TestNoOpManager(t *testing.T) {
	m := NoOpManager()

	if m.Enabled() {
		t.Error("NoOpManager should not be enabled")
	}

	// These should not panic
	m.RecordSignalSent("s")
	m.RecordSignalResolved("s")
	m.RecordSignalWait("s", livecheck.OutcomeCancelled, time.Second)
	m.RecordDispatchDropped("unknown_signal")
	m.RecordBusPublished("local")
	m.RecordBusDelivered("local")
	m.RecordBusFailed("local", "x")
	m.RecordHTTPRequest(context.Background(), "GET", "/", "200", time.Millisecond)
	m.IncActiveConnections()
	m.DecActiveConnections()
	if err := m.StartServer(context.Background(), 0, "/metrics"); err != nil {
		t.Errorf("disabled StartServer should be a no-op, got %v", err)
	}
}

func BenchmarkRecordSignalWait(b *testing.B) {
	m := NewManager(DefaultConfig())
	d := 100 * time.Millisecond
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.RecordSignalWait("order_paid", livecheck.OutcomeResolved, d)
	}
}

func BenchmarkRecordHTTPRequest(b *testing.B) {
	m := NewManager(DefaultConfig())
	ctx := context.Background()
	d := 5 * time.Millisecond
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.RecordHTTPRequest(ctx, "GET", "/api/v1/cases", "200", d)
	}
}

func BenchmarkNoOpRecording(b *testing.B) {
	m := NoOpManager()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.RecordSignalSent("s")
		m.RecordBusPublished("local")
	}
}
