package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/chative/appointment-assistant/internal/agent"
	"github.com/chative/appointment-assistant/internal/agent/model"
	errx "github.com/chative/appointment-assistant/internal/core/error"
	logx "github.com/chative/appointment-assistant/pkg/logger"
)

const maxBodyBytes = 64 << 10

// Service is the assistant surface the API drives.
type Service interface {
	Submit(ctx context.Context, sessionID, text string) (*agent.Result, error)
	PendingReview(ctx context.Context, runID string) (*model.RequestState, error)
	Complete(ctx context.Context, runID string, decision model.ReviewDecision) (*agent.Result, error)
}

type Config struct {
	Service      Service
	Appointments model.AppointmentRepository
	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
	RequestTimeout time.Duration
}

// Handler provides the HTTP handlers for the assistant
type Handler struct {
	svc     Service
	repo    model.AppointmentRepository
	metrics http.Handler
	timeout time.Duration
}

func NewHandler(cfg Config) (*Handler, error) {
	if cfg.Service == nil || cfg.Appointments == nil {
		return nil, fmt.Errorf("api: service and appointment store are required")
	}
	return &Handler{
		svc:     cfg.Service,
		repo:    cfg.Appointments,
		metrics: cfg.MetricsHandler,
		timeout: cfg.RequestTimeout,
	}, nil
}

// Routes registers every route.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		if h.timeout > 0 {
			r.Use(middleware.Timeout(h.timeout))
		}
		r.Post("/requests", h.SubmitRequest)
		r.Get("/reviews/{runID}", h.GetReview)
		r.Post("/reviews/{runID}", h.DecideReview)
		r.Get("/slots", h.ListSlots)
		r.Get("/appointments", h.ListAppointments)
		r.Get("/appointments/{id}", h.GetAppointment)
	})

	return r
}

type submitRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// requestResponse never carries the raw input.
type requestResponse struct {
	RunID         string              `json:"run_id"`
	Status        string              `json:"status"`
	Intent        string              `json:"intent"`
	Route         []string            `json:"route"`
	Response      string              `json:"response,omitempty"`
	Draft         string              `json:"draft,omitempty"`
	ToolCallCount int                 `json:"tool_call_count"`
	PIITypes      []string            `json:"pii_types,omitempty"`
	ToolResult    *model.ActionResult `json:"tool_result,omitempty"`
	Trace         string              `json:"trace,omitempty"`
}

const statusPendingReview = "PENDING_REVIEW"

func newRequestResponse(s *model.RequestState, traceLoc string) requestResponse {
	resp := requestResponse{
		RunID:         s.RunID,
		Status:        string(s.FinalStatus),
		Intent:        string(s.Intent),
		Route:         s.RouteTaken,
		Response:      s.HITLResponse,
		ToolCallCount: s.ToolCallCount,
		PIITypes:      s.PIITypes,
		ToolResult:    s.ToolResult,
		Trace:         traceLoc,
	}
	if s.AwaitingReview() {
		resp.Status = statusPendingReview
		resp.Draft = s.Review.Draft
	}
	return resp
}

// SubmitRequest runs one patient request. Drafted replies come back as
// PENDING_REVIEW until a reviewer decides.
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, errx.BadRequest(errors.New("text is required")))
		return
	}

	res, err := h.svc.Submit(r.Context(), req.SessionID, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if res.Pending() {
		status = http.StatusAccepted
	}
	writeJSON(w, status, newRequestResponse(res.State, res.TraceLocation))
}

// GetReview returns a parked draft.
func (h *Handler) GetReview(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.PendingReview(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRequestResponse(s, ""))
}

// DecideReview applies approve, edit or reject to a parked draft.
func (h *Handler) DecideReview(w http.ResponseWriter, r *http.Request) {
	var d model.ReviewDecision
	if err := decode(w, r, &d); err != nil {
		writeError(w, err)
		return
	}
	d.Action = model.ReviewAction(strings.ToLower(strings.TrimSpace(string(d.Action))))

	res, err := h.svc.Complete(r.Context(), chi.URLParam(r, "runID"), d)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRequestResponse(res.State, res.TraceLocation))
}

func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := h.repo.Slots(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": slots})
}

func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	apts, err := h.repo.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": apts})
}

func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	apt, err := h.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apt)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Helpers ---

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errx.BadRequest(fmt.Errorf("invalid request body: %w", err))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logx.Warn().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, msg := errx.StatusOf(err), errx.MessageOf(err)
	switch {
	case errors.Is(err, model.ErrReviewNotFound):
		status, msg = http.StatusNotFound, model.ErrReviewNotFound.Error()
	case errors.Is(err, model.ErrReviewAlreadyResolved):
		status, msg = http.StatusConflict, model.ErrReviewAlreadyResolved.Error()
	case errors.Is(err, model.ErrEmptyEdit):
		status, msg = http.StatusBadRequest, model.ErrEmptyEdit.Error()
	case errors.Is(err, model.ErrAppointmentNotFound):
		status, msg = http.StatusNotFound, model.ErrAppointmentNotFound.Error()
	case errors.Is(err, context.DeadlineExceeded):
		status, msg = http.StatusGatewayTimeout, "request timed out"
	}

	if status >= http.StatusInternalServerError {
		logx.Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			logx.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("elapsed", time.Since(start)).
				Msg("http request")
		}()
		next.ServeHTTP(ww, r)
	})
}
