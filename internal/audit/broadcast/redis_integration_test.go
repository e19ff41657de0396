//go:build integration

package broadcast_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audittrail/internal/audit/broadcast"
	"audittrail/pkg/testutil/containers"
)

func TestRedisBroadcastAgainstRealServer(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	redis := containers.NewRedisContainer(t)
	broker := broadcast.NewRedis(redis.Client, "audit_events_channel")
	ctx := context.Background()

	first, err := broker.Subscribe(ctx)
	require.NoError(t, err)
	defer first.Close()
	second, err := broker.Subscribe(ctx)
	require.NoError(t, err)
	defer second.Close()

	require.NoError(t, broker.Publish(ctx, []byte(`{"message":"hello","severity":"info"}`)))

	for _, sub := range []broadcast.Subscription{first, second} {
		select {
		case msg := <-sub.Messages():
			assert.JSONEq(t, `{"message":"hello","severity":"info"}`, string(msg))
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for published message")
		}
	}

	// Closing one subscriber must not disturb the other.
	require.NoError(t, first.Close())
	require.NoError(t, broker.Publish(ctx, []byte(`{"n":2}`)))

	select {
	case msg := <-second.Messages():
		assert.JSONEq(t, `{"n":2}`, string(msg))
	case <-time.After(5 * time.Second):
		t.Fatal("surviving subscriber missed the publish")
	}
}
