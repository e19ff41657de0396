package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditEvent is a persisted, immutable record of one ingested occurrence.
// EventID and IngestedAt are assigned exactly once by the ingestion service;
// the Event document is the client payload with both stamped into it, stored
// verbatim otherwise.
type AuditEvent struct {
	EventID    uuid.UUID
	IngestedAt time.Time
	Event      map[string]any
}
