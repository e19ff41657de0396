// Package broadcast provides the live fan-out channel for freshly ingested
// events. The channel is best-effort and at-most-once: it is never the
// system of record, and losing a message does not corrupt storage.
package broadcast

import "context"

// Broadcaster publishes event documents to all currently subscribed
// listeners. Subscribers connected after a publish never see it.
type Broadcaster interface {
	// Publish delivers payload to every current subscriber, best effort.
	Publish(ctx context.Context, payload []byte) error

	// Subscribe registers a new listener. Failure to subscribe is fatal to
	// the caller; the returned subscription must be closed on every exit
	// path.
	Subscribe(ctx context.Context) (Subscription, error)
}

// Subscription is a scoped handle on the broadcast channel. Messages is
// closed when the subscription ends; Close is idempotent and always
// releases the underlying resource.
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}
