package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/goclaw/livecheck/pkg/api/middleware"
	"github.com/goclaw/livecheck/pkg/api/models"
	"github.com/goclaw/livecheck/pkg/api/response"
	"github.com/goclaw/livecheck/pkg/event"
	"github.com/goclaw/livecheck/pkg/livecheck"
	"github.com/goclaw/livecheck/pkg/logger"
	"github.com/goclaw/livecheck/pkg/store"
)

const maxPublishBody = 1 << 20

// CaseHandler exposes registered cases, their resolved values and a publish
// endpoint for producers that cannot link the Go API.
type CaseHandler struct {
	app       *livecheck.App
	logger    logger.Logger
	validator *validator.Validate
}

// NewCaseHandler creates a new case handler.
func NewCaseHandler(app *livecheck.App, log logger.Logger) *CaseHandler {
	if log == nil {
		log = logger.Global()
	}
	return &CaseHandler{
		app:       app,
		logger:    log,
		validator: validator.New(),
	}
}

// ListCases handles GET /api/v1/cases.
func (h *CaseHandler) ListCases(w http.ResponseWriter, r *http.Request) {
	cases := h.app.Cases()
	sort.Slice(cases, func(i, j int) bool { return cases[i].Name() < cases[j].Name() })

	resp := models.CaseListResponse{
		Cases: make([]models.CaseResponse, 0, len(cases)),
		Total: len(cases),
	}
	for _, c := range cases {
		resp.Cases = append(resp.Cases, caseResponse(c))
	}
	response.JSON(w, http.StatusOK, resp)
}

// GetCase handles GET /api/v1/cases/{case}.
func (h *CaseHandler) GetCase(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookupCase(w, r)
	if !ok {
		return
	}
	response.JSON(w, http.StatusOK, caseResponse(c))
}

// GetResolved handles GET /api/v1/cases/{case}/resolved/{key}.
func (h *CaseHandler) GetResolved(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, ok := h.lookupCase(w, r)
	if !ok {
		return
	}
	key := chi.URLParam(r, "key")

	ev, err := h.app.Store().Get(ctx, c.Name(), key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.FromContext(ctx).Error("failed to read resolved event", "case", c.Name(), "key", key, "error", err)
		}
		response.HandleError(w, err, middleware.GetRequestID(ctx))
		return
	}

	resp := models.ResolvedResponse{
		EventID: ev.ID,
		Case:    ev.CaseName,
		Signal:  ev.SignalName,
		Key:     ev.Key,
		SentAt:  ev.SentAt,
	}
	var value any
	if err := h.app.Codec().Loads(ev.Value, &value); err == nil {
		resp.Value = value
	} else {
		resp.RawValue = ev.Value
	}
	response.JSON(w, http.StatusOK, resp)
}

// Publish handles POST /api/v1/cases/{case}/signals/{signal}/events.
//
// The event goes through the bus like any Send, so it is resolved by
// whichever process owns the key's partition.
func (h *CaseHandler) Publish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetRequestID(ctx)

	c, ok := h.lookupCase(w, r)
	if !ok {
		return
	}
	signalName := chi.URLParam(r, "signal")
	if !slices.Contains(c.SignalNames(), signalName) {
		response.HandleError(w, fmt.Errorf("%w: %s/%s", livecheck.ErrUnknownSignal, c.Name(), signalName), reqID)
		return
	}

	var req models.PublishRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPublishBody)).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, response.ErrCodeBadRequest, "Invalid request body", reqID)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.Error(w, http.StatusBadRequest, response.ErrCodeValidationFailed, err.Error(), reqID)
		return
	}

	var value any
	if err := json.Unmarshal(req.Value, &value); err != nil {
		response.Error(w, http.StatusBadRequest, response.ErrCodeBadRequest, "value is not valid JSON", reqID)
		return
	}
	payload, err := h.app.Codec().Dumps(value)
	if err != nil {
		response.Error(w, http.StatusBadRequest, response.ErrCodeBadRequest, "value cannot be encoded: "+err.Error(), reqID)
		return
	}

	ev, err := event.New(signalName, c.Name(), req.Key, payload)
	if err != nil {
		response.HandleError(w, fmt.Errorf("%w: %w", response.ErrInvalidInput, err), reqID)
		return
	}
	if err := h.app.Bus().Publish(ctx, ev); err != nil {
		logger.FromContext(ctx).Error("failed to publish event", "case", c.Name(), "signal", signalName, "key", req.Key, "error", err)
		response.HandleError(w, err, reqID)
		return
	}

	response.JSON(w, http.StatusAccepted, models.PublishResponse{
		EventID: ev.ID,
		Case:    ev.CaseName,
		Signal:  ev.SignalName,
		Key:     ev.Key,
		SentAt:  ev.SentAt,
	})
}

func (h *CaseHandler) lookupCase(w http.ResponseWriter, r *http.Request) (*livecheck.Case, bool) {
	name := chi.URLParam(r, "case")
	c, ok := h.app.Case(name)
	if !ok {
		response.HandleError(w, fmt.Errorf("%w: %s", livecheck.ErrUnknownCase, name), middleware.GetRequestID(r.Context()))
		return nil, false
	}
	return c, true
}

func caseResponse(c *livecheck.Case) models.CaseResponse {
	resp := models.CaseResponse{
		Name:    c.Name(),
		Signals: c.SignalNames(),
	}
	if exec, ok := c.Execution(); ok {
		resp.Execution = &models.ExecutionResponse{ID: exec.ID, StartedAt: exec.StartedAt}
	}
	return resp
}
