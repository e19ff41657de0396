package retention

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audittrail/internal/audit/models"
	"audittrail/internal/audit/store"
	"audittrail/internal/audit/store/memory"
	"audittrail/pkg/sentinel"
)

func newTestSweeper(st store.Store) *Sweeper {
	return New(st, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
}

func insertAt(t *testing.T, st store.Store, ingestedAt time.Time) uuid.UUID {
	t.Helper()
	event := &models.AuditEvent{
		EventID:    uuid.New(),
		IngestedAt: ingestedAt,
		Event:      map[string]any{"message": "m", "severity": "info"},
	}
	require.NoError(t, st.Insert(context.Background(), event))
	return event.EventID
}

func TestRunOnceDeletesOnlyExpiredEvents(t *testing.T) {
	st := memory.New()
	sweeper := newTestSweeper(st)

	now := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	sweeper.now = func() time.Time { return now }

	expired := insertAt(t, st, now.AddDate(-3, 0, -1))
	fresh := insertAt(t, st, now.AddDate(-2, 0, 0))

	sweeper.RunOnce(context.Background())

	_, err := st.GetByID(context.Background(), expired)
	require.ErrorIs(t, err, sentinel.ErrNotFound)
	_, err = st.GetByID(context.Background(), fresh)
	require.NoError(t, err)
}

func TestRunOnceIsIdempotent(t *testing.T) {
	st := memory.New()
	sweeper := newTestSweeper(st)

	now := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	sweeper.now = func() time.Time { return now }
	insertAt(t, st, now.AddDate(-4, 0, 0))

	sweeper.RunOnce(context.Background())
	sweeper.RunOnce(context.Background())

	events, err := st.ListByIngestion(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}

type unavailableStore struct{ store.Store }

func (unavailableStore) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, errors.New("storage unavailable")
}

func TestRunOnceSurvivesStorageFailure(t *testing.T) {
	sweeper := newTestSweeper(unavailableStore{})

	// A failed run logs and returns; it must not panic and must leave the
	// sweeper usable for the next schedule.
	sweeper.RunOnce(context.Background())

	st := memory.New()
	sweeper.store = st
	now := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	sweeper.now = func() time.Time { return now }
	insertAt(t, st, now.AddDate(-4, 0, 0))

	sweeper.RunOnce(context.Background())
	events, err := st.ListByIngestion(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestStartSchedulesAndStopHalts(t *testing.T) {
	sweeper := newTestSweeper(memory.New())
	require.NoError(t, sweeper.Start())
	sweeper.Stop()
}
