package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"audittrail/internal/audit/models"
	"audittrail/internal/audit/schema"
	"audittrail/pkg/sentinel"
)

// EventService is the ingestion and query surface the handlers delegate to.
type EventService interface {
	Ingest(ctx context.Context, doc map[string]any) (*models.AuditEvent, error)
	Get(ctx context.Context, eventID uuid.UUID) (map[string]any, error)
	List(ctx context.Context) ([]map[string]any, error)
}

func (h *Handler) handlePostEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var doc map[string]any
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"errors": []schema.FieldError{{Message: "invalid JSON body"}},
		})
		return
	}

	_, err := h.events.Ingest(ctx, doc)
	if err != nil {
		var vErr *schema.ValidationError
		if errors.As(err, &vErr) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"errors": vErr.Violations})
			return
		}
		h.logger.ErrorContext(ctx, "failed to ingest event", "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"message": "Success!"})
}

func (h *Handler) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Malformed ids cannot match a stored event, so they read as not found
	// rather than leaking id-format details.
	eventID, err := uuid.Parse(chi.URLParam(r, "eventID"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Event not found!"})
		return
	}

	doc, err := h.events.Get(ctx, eventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Event not found!"})
			return
		}
		h.logger.ErrorContext(ctx, "failed to fetch event", "event_id", eventID.String(), "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	docs, err := h.events.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list events", "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, docs)
}
