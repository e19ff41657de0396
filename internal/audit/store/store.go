// Package store defines the durable event store port. Implementations are
// pure I/O; ordering and retention rules live with the callers.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"audittrail/internal/audit/models"
)

// Store is the system of record for audit events. All mutation goes through
// Insert and DeleteOlderThan; rows are never updated in place.
type Store interface {
	// Insert durably writes one event. Returns sentinel.ErrConflict
	// (wrapped) if the event id already exists.
	Insert(ctx context.Context, event *models.AuditEvent) error

	// GetByID returns the event or sentinel.ErrNotFound (wrapped).
	GetByID(ctx context.Context, eventID uuid.UUID) (*models.AuditEvent, error)

	// ListByIngestion returns all events ascending by ingestion time.
	ListByIngestion(ctx context.Context) ([]*models.AuditEvent, error)

	// DeleteOlderThan removes every event with IngestedAt before cutoff in
	// a single atomic operation and reports how many were deleted.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
