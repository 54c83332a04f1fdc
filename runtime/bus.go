package runtime

import (
	"context"

	"github.com/convoke-dev/convoke/core"
)

// Handler consumes an envelope delivered to a subscription. The context is
// the bus lifetime context and is cancelled when the bus shuts down. Handlers
// for the same subscription are never invoked concurrently.
type Handler func(ctx context.Context, env core.Envelope)

// Subscription represents an active topic registration.
type Subscription interface {
	// Unsubscribe detaches the handler. Messages not yet delivered to the
	// handler at the time of the call may be discarded. Safe to call more
	// than once.
	Unsubscribe()
}

// Bus is the asynchronous message delivery substrate. Within a single run it
// must deliver each published envelope to every active subscriber of the
// topic exactly once, preserving per-subscriber publish order.
type Bus interface {
	// Subscribe registers a handler for all envelopes published to topic.
	Subscribe(topic string, h Handler) (Subscription, error)

	// Publish delivers env to every current subscriber of topic. It blocks
	// only while a subscriber mailbox is full; ctx bounds that wait.
	Publish(ctx context.Context, topic string, env core.Envelope) error

	// Close shuts the bus down, waits for in-flight deliveries to drain and
	// releases all subscriptions.
	Close() error
}
