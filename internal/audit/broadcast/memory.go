package broadcast

import (
	"context"
	"sync"
)

// defaultBuffer bounds each subscriber's backlog. A full buffer drops the
// message for that subscriber, matching the channel's at-most-once contract.
const defaultBuffer = 16

// Memory is an in-process broadcaster used by unit tests and local runs.
// It mirrors Redis pub/sub semantics: independent copies per subscriber,
// no replay, drop on back-pressure.
type Memory struct {
	mu   sync.Mutex
	subs map[int]chan []byte
	next int
}

func NewMemory() *Memory {
	return &Memory{subs: make(map[int]chan []byte)}
}

func (m *Memory) Publish(_ context.Context, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

func (m *Memory) Subscribe(_ context.Context) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.next
	m.next++
	ch := make(chan []byte, defaultBuffer)
	m.subs[id] = ch

	return &memorySubscription{broker: m, id: id, ch: ch}, nil
}

func (m *Memory) unsubscribe(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.subs[id]; ok {
		delete(m.subs, id)
		close(ch)
	}
}

// SubscriberCount reports the number of live subscriptions; tests use it to
// verify deterministic release.
func (m *Memory) SubscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

type memorySubscription struct {
	broker *Memory
	id     int
	ch     chan []byte
	once   sync.Once
}

func (s *memorySubscription) Messages() <-chan []byte {
	return s.ch
}

func (s *memorySubscription) Close() error {
	s.once.Do(func() {
		s.broker.unsubscribe(s.id)
	})
	return nil
}
