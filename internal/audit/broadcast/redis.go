package broadcast

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"audittrail/pkg/sentinel"
)

// Redis broadcasts over a Redis pub/sub channel. Delivery follows Redis
// pub/sub semantics: no persistence, no replay, slow subscribers are
// governed by the client's own buffering.
type Redis struct {
	client  *redis.Client
	channel string
}

// NewRedis wraps an existing client. The client is shared process-wide and
// owned by the caller.
func NewRedis(client *redis.Client, channel string) *Redis {
	return &Redis{client: client, channel: channel}
}

func (r *Redis) Publish(ctx context.Context, payload []byte) error {
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", r.channel, err)
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context) (Subscription, error) {
	pubsub := r.client.Subscribe(ctx, r.channel)

	// Force the subscribe round-trip so a broker outage fails the caller's
	// request instead of surfacing later as a silent dead stream.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w: %v", r.channel, sentinel.ErrUnavailable, err)
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		msgs:   make(chan []byte),
		done:   make(chan struct{}),
	}
	go sub.pump()
	return sub, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	msgs   chan []byte
	done   chan struct{}
	once   sync.Once
}

// pump converts go-redis messages into raw payload bytes. The go-redis
// channel closes when the subscription is closed, which ends the loop and
// closes Messages. The done guard keeps pump from blocking forever on a
// reader that went away before draining.
func (s *redisSubscription) pump() {
	defer close(s.msgs)
	for msg := range s.pubsub.Channel() {
		select {
		case s.msgs <- []byte(msg.Payload):
		case <-s.done:
			return
		}
	}
}

func (s *redisSubscription) Messages() <-chan []byte {
	return s.msgs
}

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})
	return err
}
