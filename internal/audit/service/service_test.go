package service

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
	"golang.org/x/sync/errgroup"

	"audittrail/internal/audit/broadcast"
	"audittrail/internal/audit/models"
	"audittrail/internal/audit/schema"
	"audittrail/internal/audit/store"
	"audittrail/internal/audit/store/memory"
	"audittrail/pkg/sentinel"
)

const testSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["message", "severity"],
	"properties": {
		"message":  {"type": "string"},
		"severity": {"type": "string"}
	}
}`

func newTestService(t *testing.T, st store.Store, b broadcast.Broadcaster) *Service {
	t.Helper()
	validator, err := schema.New([]byte(testSchema))
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(validator, st, b, logger, nil)
}

func TestIngestRejectsInvalidDocumentWithoutSideEffects(t *testing.T) {
	st := memory.New()
	broker := broadcast.NewMemory()
	svc := newTestService(t, st, broker)

	sub, err := broker.Subscribe(context.Background())
	require.NoError(t, err)
	defer sub.Close()

	_, err = svc.Ingest(context.Background(), map[string]any{"message": "hello"})

	var vErr *schema.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.NotEmpty(t, vErr.Violations)
	assert.Contains(t, vErr.Violations[0].Message, "severity")

	events, err := st.ListByIngestion(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events, "rejected document must not be stored")

	select {
	case msg := <-sub.Messages():
		t.Fatalf("rejected document was broadcast: %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestIngestStampsPersistsAndBroadcasts(t *testing.T) {
	st := memory.New()
	broker := broadcast.NewMemory()
	svc := newTestService(t, st, broker)

	fixed := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	fixedID := uuid.New()
	svc.now = func() time.Time { return fixed }
	svc.newID = func() uuid.UUID { return fixedID }

	sub, err := broker.Subscribe(context.Background())
	require.NoError(t, err)
	defer sub.Close()

	event, err := svc.Ingest(context.Background(), map[string]any{
		"message":  "hello",
		"severity": "info",
	})
	require.NoError(t, err)
	assert.Equal(t, fixedID, event.EventID)
	assert.Equal(t, fixed, event.IngestedAt)

	// Round trip: the stored document carries the stamped identity fields.
	doc, err := svc.Get(context.Background(), fixedID)
	require.NoError(t, err)
	assert.Equal(t, fixedID.String(), doc["eventId"])
	assert.Equal(t, fixed.Format(time.RFC3339Nano), doc["ingestedAt"])
	assert.Equal(t, "hello", doc["message"])

	select {
	case msg := <-sub.Messages():
		assert.Contains(t, string(msg), fixedID.String())
	case <-time.After(time.Second):
		t.Fatal("accepted event was not broadcast")
	}
}

func TestIngestGetUnknownIDIsNotFound(t *testing.T) {
	svc := newTestService(t, memory.New(), broadcast.NewMemory())
	_, err := svc.Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

type failingStore struct{ store.Store }

func (failingStore) Insert(context.Context, *models.AuditEvent) error {
	return errors.New("storage unavailable")
}

func TestStorageFailurePreventsBroadcast(t *testing.T) {
	broker := broadcast.NewMemory()
	svc := newTestService(t, failingStore{}, broker)

	sub, err := broker.Subscribe(context.Background())
	require.NoError(t, err)
	defer sub.Close()

	_, err = svc.Ingest(context.Background(), map[string]any{
		"message":  "hello",
		"severity": "info",
	})
	require.Error(t, err)

	var vErr *schema.ValidationError
	assert.False(t, errors.As(err, &vErr), "storage failure is not a validation error")

	select {
	case msg := <-sub.Messages():
		t.Fatalf("unpersisted event was broadcast: %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

type failingBroadcaster struct{}

func (f *failingBroadcaster) Publish(context.Context, []byte) error {
	return errors.New("broker down")
}

func (f *failingBroadcaster) Subscribe(context.Context) (broadcast.Subscription, error) {
	return nil, errors.New("broker down")
}

func TestBroadcastFailureDoesNotFailIngest(t *testing.T) {
	st := memory.New()
	svc := newTestService(t, st, &failingBroadcaster{})

	event, err := svc.Ingest(context.Background(), map[string]any{
		"message":  "hello",
		"severity": "info",
	})
	require.NoError(t, err, "publish failure must not fail the request")

	// The event is durably queryable despite the dead broker.
	_, err = st.GetByID(context.Background(), event.EventID)
	require.NoError(t, err)
}

func TestConflictSurfacesAsServerError(t *testing.T) {
	st := memory.New()
	svc := newTestService(t, st, broadcast.NewMemory())

	fixedID := uuid.New()
	svc.newID = func() uuid.UUID { return fixedID }

	_, err := svc.Ingest(context.Background(), map[string]any{"message": "a", "severity": "info"})
	require.NoError(t, err)

	_, err = svc.Ingest(context.Background(), map[string]any{"message": "b", "severity": "info"})
	require.ErrorIs(t, err, sentinel.ErrConflict)
}

// TestConcurrentIngestion verifies W workers x K events yields exactly W*K
// stored rows with distinct ids.
func TestConcurrentIngestion(t *testing.T) {
	st := memory.New()
	svc := newTestService(t, st, broadcast.NewMemory())

	const workers, perWorker = 10, 20
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for k := 0; k < perWorker; k++ {
				if _, err := svc.Ingest(context.Background(), map[string]any{
					"message":  "hello",
					"severity": "info",
				}); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	events, err := st.ListByIngestion(context.Background())
	require.NoError(t, err)
	require.Len(t, events, workers*perWorker)

	seen := make(map[uuid.UUID]bool, len(events))
	for _, event := range events {
		require.False(t, seen[event.EventID], "duplicate event id %s", event.EventID)
		seen[event.EventID] = true
	}
}

func TestListReturnsDocumentsInIngestionOrder(t *testing.T) {
	st := memory.New()
	svc := newTestService(t, st, broadcast.NewMemory())

	times := []time.Time{
		time.Date(2026, 8, 31, 12, 0, 2, 0, time.UTC),
		time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 31, 12, 0, 1, 0, time.UTC),
	}
	i := 0
	svc.now = func() time.Time { t := times[i]; i++; return t }

	for range times {
		_, err := svc.Ingest(context.Background(), map[string]any{"message": "m", "severity": "info"})
		require.NoError(t, err)
	}

	docs, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, times[1].Format(time.RFC3339Nano), docs[0]["ingestedAt"])
	assert.Equal(t, times[2].Format(time.RFC3339Nano), docs[1]["ingestedAt"])
	assert.Equal(t, times[0].Format(time.RFC3339Nano), docs[2]["ingestedAt"])
}
