// Package stream exposes live event sessions backed by the broadcast
// channel. Sessions are at-most-once with no replay: events published
// before a session opens, or while it is closed, are never delivered.
package stream

import (
	"context"
	"fmt"
	"log/slog"

	"audittrail/internal/audit/broadcast"
	"audittrail/internal/platform/metrics"
)

// Service opens stream sessions. Each session holds its own subscription;
// concurrent sessions receive independent copies of every publish.
type Service struct {
	broadcaster broadcast.Broadcaster
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

func New(broadcaster broadcast.Broadcaster, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{broadcaster: broadcaster, logger: logger, metrics: m}
}

// Open subscribes to the broadcast channel and returns a live session. A
// subscribe failure fails the open; there is no session to clean up in that
// case. The caller must Close the session on every exit path.
func (s *Service) Open(ctx context.Context) (*Session, error) {
	sub, err := s.broadcaster.Subscribe(ctx)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	s.metrics.StreamOpened()
	return &Session{sub: sub, metrics: s.metrics}, nil
}

// Session is one subscriber's view of the live event feed.
type Session struct {
	sub     broadcast.Subscription
	metrics *metrics.Metrics
	closed  bool
}

// Events yields each broadcast document as it arrives. The channel closes
// when the session is closed or the underlying subscription ends.
func (s *Session) Events() <-chan []byte {
	return s.sub.Messages()
}

// Close releases the subscription. Idempotent.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.metrics.StreamClosed()
	return s.sub.Close()
}
