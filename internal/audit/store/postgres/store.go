package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"audittrail/internal/audit/models"
	"audittrail/pkg/sentinel"
)

// uniqueViolation is the PostgreSQL error code for duplicate keys.
const uniqueViolation = "23505"

// Store persists audit events in PostgreSQL.
type Store struct {
	db *sql.DB
}

// New constructs a PostgreSQL-backed event store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the audit_events table and its ingestion-time index
// if they do not exist yet. Safe to call on every startup; transient
// unavailability is retried with a fixed backoff up to attempts times.
func (s *Store) EnsureSchema(ctx context.Context, attempts int, backoff time.Duration, logger *slog.Logger) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS audit_events (
			event_id    UUID PRIMARY KEY,
			ingested_at TIMESTAMPTZ NOT NULL,
			event       JSONB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_events_ingested_at
			ON audit_events (ingested_at)`,
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		lastErr = nil
		for _, stmt := range ddl {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				lastErr = err
				break
			}
		}
		if lastErr == nil {
			return nil
		}
		logger.WarnContext(ctx, "schema init failed, retrying",
			"attempt", i+1,
			"backoff", backoff.String(),
			"error", lastErr.Error(),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("ensure schema after %d attempts: %w", attempts, lastErr)
}

func (s *Store) Insert(ctx context.Context, event *models.AuditEvent) error {
	payload, err := json.Marshal(event.Event)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	query := `
		INSERT INTO audit_events (event_id, ingested_at, event)
		VALUES ($1, $2, $3)
	`
	_, err = s.db.ExecContext(ctx, query, event.EventID, event.IngestedAt, payload)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("insert audit event %s: %w", event.EventID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, eventID uuid.UUID) (*models.AuditEvent, error) {
	query := `
		SELECT event_id, ingested_at, event
		FROM audit_events
		WHERE event_id = $1
	`
	event, err := scanEvent(s.db.QueryRowContext(ctx, query, eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("audit event %s: %w", eventID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get audit event: %w", err)
	}
	return event, nil
}

func (s *Store) ListByIngestion(ctx context.Context) ([]*models.AuditEvent, error) {
	query := `
		SELECT event_id, ingested_at, event
		FROM audit_events
		ORDER BY ingested_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []*models.AuditEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM audit_events WHERE ingested_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete audit events older than %s: %w", cutoff.Format(time.RFC3339), err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete audit events rows affected: %w", err)
	}
	return deleted, nil
}

// DeleteAll truncates the table. Ops/test path only; not routed.
func (s *Store) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `TRUNCATE audit_events`); err != nil {
		return fmt.Errorf("truncate audit events: %w", err)
	}
	return nil
}

type eventRow interface {
	Scan(dest ...any) error
}

func scanEvent(row eventRow) (*models.AuditEvent, error) {
	var (
		event   models.AuditEvent
		payload []byte
	)
	if err := row.Scan(&event.EventID, &event.IngestedAt, &payload); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &event.Event); err != nil {
		return nil, fmt.Errorf("unmarshal event payload: %w", err)
	}
	return &event, nil
}
