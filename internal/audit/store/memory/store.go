package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"audittrail/internal/audit/models"
	"audittrail/pkg/sentinel"
)

// Store is the in-memory twin of the PostgreSQL store, used in unit tests
// and local runs without a database.
type Store struct {
	mu     sync.RWMutex
	events map[uuid.UUID]*models.AuditEvent
	order  []uuid.UUID
}

func New() *Store {
	return &Store{events: make(map[uuid.UUID]*models.AuditEvent)}
}

func (s *Store) Insert(_ context.Context, event *models.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.events[event.EventID]; exists {
		return fmt.Errorf("insert audit event %s: %w", event.EventID, sentinel.ErrConflict)
	}
	copied := *event
	s.events[event.EventID] = &copied
	s.order = append(s.order, event.EventID)
	return nil
}

func (s *Store) GetByID(_ context.Context, eventID uuid.UUID) (*models.AuditEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[eventID]
	if !ok {
		return nil, fmt.Errorf("audit event %s: %w", eventID, sentinel.ErrNotFound)
	}
	copied := *event
	return &copied, nil
}

func (s *Store) ListByIngestion(_ context.Context) ([]*models.AuditEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]*models.AuditEvent, 0, len(s.order))
	for _, id := range s.order {
		copied := *s.events[id]
		events = append(events, &copied)
	}
	// Stable sort keeps insertion order for equal timestamps.
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].IngestedAt.Before(events[j].IngestedAt)
	})
	return events, nil
}

func (s *Store) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		deleted int64
		kept    []uuid.UUID
	)
	for _, id := range s.order {
		if s.events[id].IngestedAt.Before(cutoff) {
			delete(s.events, id)
			deleted++
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return deleted, nil
}
