// Package handler exposes the screening service over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sanctions-gateway/internal/screening"
	"sanctions-gateway/internal/screening/metrics"
	"sanctions-gateway/pkg/platform/httputil"
	"sanctions-gateway/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/service-mocks.go -package=mocks Service

// Service defines the screening operations the handler needs.
type Service interface {
	Screen(ctx context.Context, req screening.Request) (*screening.Result, error)
	Health(ctx context.Context) screening.Health
	Ready(ctx context.Context) error
	Reject(ctx context.Context, err error)
}

// Handler wires screening endpoints to the screening service.
type Handler struct {
	service Service
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New constructs a screening handler. A nil logger discards.
func New(service Service, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		service: service,
		logger:  logger,
		metrics: metrics,
	}
}

// Register mounts screening, health and readiness endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/sanctions/screen/person", h.HandleScreenPerson)
	r.Get("/health", h.HandleHealth)
	r.Get("/readyz", h.HandleReady)
}

// HandleScreenPerson handles POST /v1/sanctions/screen/person requests.
func (h *Handler) HandleScreenPerson(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, err := httputil.Decode[ScreenPersonRequest](r, h.logger, ctx, requestID)
	if err != nil {
		h.service.Reject(ctx, err)
		h.metrics.IncrementFailure(reasonInvalidRequest)
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Screen(ctx, req.ToDomain())
	if err != nil {
		// the service has already audited and logged the failure
		httputil.WriteError(w, err)
		return
	}

	h.logger.DebugContext(ctx, "screening served",
		"request_id", result.RequestID,
		"decision", result.Decision.Decision,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}

// HandleHealth handles GET /health. It always answers 200; a failing matcher
// shows up as a degraded status.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, FromHealth(h.service.Health(r.Context())))
}

// HandleReady handles GET /readyz.
func (h *Handler) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.Ready(ctx); err != nil {
		h.logger.WarnContext(ctx, "not ready",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

const reasonInvalidRequest = "invalid_request"
