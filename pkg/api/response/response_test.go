package response

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goclaw/livecheck/pkg/bus"
	"github.com/goclaw/livecheck/pkg/livecheck"
	"github.com/goclaw/livecheck/pkg/store"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusCreated, map[string]int{"id": 123})

	if w.Code != http.StatusCreated {
		t.Errorf("JSON() status = %v, want %v", w.Code, http.StatusCreated)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var got map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if got["id"] != 123 {
		t.Errorf("unexpected body %v", got)
	}
}

func TestJSON_NilBody(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusNoContent, nil)
	if w.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", w.Body.String())
	}
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()
	ErrorWithDetails(w, http.StatusBadRequest, ErrCodeBadRequest, "bad key", map[string]any{"field": "key"}, "req-1")

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if resp.Error.Code != ErrCodeBadRequest || resp.Error.Message != "bad key" || resp.Error.RequestID != "req-1" {
		t.Errorf("unexpected error envelope %+v", resp.Error)
	}
	if resp.Error.Details["field"] != "key" {
		t.Errorf("expected details, got %v", resp.Error.Details)
	}
}

func TestHTTPStatusFromError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", ErrInvalidInput), http.StatusBadRequest},
		{store.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: checkout", livecheck.ErrUnknownCase), http.StatusNotFound},
		{livecheck.ErrUnknownSignal, http.StatusNotFound},
		{bus.ErrClosed, http.StatusServiceUnavailable},
		{&store.UnavailableError{Cause: errors.New("down")}, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatusFromError(tt.err); got != tt.want {
			t.Errorf("HTTPStatusFromError(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestHandleError(t *testing.T) {
	w := httptest.NewRecorder()
	HandleError(w, store.ErrNotFound, "req-2")

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if resp.Error.Code != ErrCodeNotFound {
		t.Errorf("code = %s, want %s", resp.Error.Code, ErrCodeNotFound)
	}
}

func TestErrorCodeFromStatus(t *testing.T) {
	if got := ErrorCodeFromStatus(http.StatusTooManyRequests); got != ErrCodeRateLimited {
		t.Errorf("got %s", got)
	}
	if got := ErrorCodeFromStatus(http.StatusTeapot); got != ErrCodeInternalServer {
		t.Errorf("got %s", got)
	}
}
