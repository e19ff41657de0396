// Package httptransport is the thin HTTP layer. It delegates to the domain
// services without embedding business logic so transport concerns remain
// isolated.
package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthCheck reports whether one backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Handler owns the public endpoints.
type Handler struct {
	logger  *slog.Logger
	events  EventService
	streams StreamService
	checks  map[string]HealthCheck
}

func NewHandler(events EventService, streams StreamService, logger *slog.Logger, checks map[string]HealthCheck) *Handler {
	return &Handler{
		logger:  logger,
		events:  events,
		streams: streams,
		checks:  checks,
	}
}

// NewRouter wires all public endpoints.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/events", h.handlePostEvent)
	r.Get("/events", h.handleListEvents)
	r.Get("/events/{eventID}", h.handleGetEvent)
	r.Get("/stream", h.handleStream)

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	components := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			components[name] = err.Error()
			continue
		}
		components[name] = "ok"
	}
	writeJSON(w, status, map[string]any{"components": components})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
