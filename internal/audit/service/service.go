// Package service orchestrates the ingestion path: validate, stamp,
// persist, broadcast.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"audittrail/internal/audit/broadcast"
	"audittrail/internal/audit/models"
	"audittrail/internal/audit/schema"
	"audittrail/internal/audit/store"
	"audittrail/internal/platform/metrics"
)

// Service accepts raw audit documents and turns them into durable,
// broadcast AuditEvents. Concurrent calls are independent; correctness
// relies on the store's transactional guarantees, not in-process locking.
type Service struct {
	validator   *schema.Validator
	store       store.Store
	broadcaster broadcast.Broadcaster
	logger      *slog.Logger
	metrics     *metrics.Metrics

	now   func() time.Time
	newID func() uuid.UUID
}

func New(validator *schema.Validator, st store.Store, b broadcast.Broadcaster, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		validator:   validator,
		store:       st,
		broadcaster: b,
		logger:      logger,
		metrics:     m,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.New,
	}
}

// Ingest validates doc, stamps it with a fresh event id and the current UTC
// time, persists it, and broadcasts the stamped document to live
// subscribers. A validation failure returns *schema.ValidationError with
// every violation and has no side effects. A storage failure fails the
// request before any broadcast. A broadcast failure is logged and
// swallowed: the event is already durably stored and live fan-out is best
// effort.
func (s *Service) Ingest(ctx context.Context, doc map[string]any) (*models.AuditEvent, error) {
	if violations := s.validator.Validate(doc); violations != nil {
		s.metrics.IncEventsRejected()
		return nil, &schema.ValidationError{Violations: violations}
	}

	ingestedAt := s.now()
	eventID := s.newID()

	// Stamp the payload itself so the broadcast copy and the stored row
	// carry identical identity fields.
	doc["ingestedAt"] = ingestedAt.Format(time.RFC3339Nano)
	doc["eventId"] = eventID.String()

	event := &models.AuditEvent{
		EventID:    eventID,
		IngestedAt: ingestedAt,
		Event:      doc,
	}

	if err := s.store.Insert(ctx, event); err != nil {
		return nil, fmt.Errorf("persist audit event: %w", err)
	}
	s.metrics.IncEventsIngested()

	payload, err := json.Marshal(doc)
	if err != nil {
		// The document already round-tripped through validation, so this
		// is unreachable in practice; the row is durable either way.
		s.logger.ErrorContext(ctx, "marshal stamped event for broadcast",
			"event_id", eventID.String(),
			"error", err.Error(),
		)
		return event, nil
	}
	if err := s.broadcaster.Publish(ctx, payload); err != nil {
		s.metrics.IncBroadcastFailures()
		s.logger.WarnContext(ctx, "broadcast publish failed, event remains stored",
			"event_id", eventID.String(),
			"error", err.Error(),
		)
	}

	return event, nil
}

// Get returns the stored payload document for eventID. Wraps
// sentinel.ErrNotFound for unknown ids.
func (s *Service) Get(ctx context.Context, eventID uuid.UUID) (map[string]any, error) {
	event, err := s.store.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return event.Event, nil
}

// List returns every stored payload document ascending by ingestion time.
func (s *Service) List(ctx context.Context) ([]map[string]any, error) {
	events, err := s.store.ListByIngestion(ctx)
	if err != nil {
		return nil, err
	}
	docs := make([]map[string]any, 0, len(events))
	for _, event := range events {
		docs = append(docs, event.Event)
	}
	return docs, nil
}
