package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/convoke-dev/convoke/core"
)

// ErrBusClosed is returned by Publish and Subscribe after Close.
var ErrBusClosed = errors.New("bus closed")

// Options configures an InProcBus instance.
type Options struct {
	// MailboxSize sets the per-subscriber buffer. Publish blocks once a
	// subscriber's mailbox is full, providing backpressure.
	MailboxSize int
}

// InProcBus is an in-process Bus. Every subscription owns a buffered mailbox
// drained by a dedicated goroutine, so handler execution is serialized per
// subscriber and delivery order per subscriber matches publish order. It is
// safe for concurrent use and suited for tests and single-process runs.
type InProcBus struct {
	mu     sync.RWMutex
	topics map[string]map[*subscriber]struct{}
	closed bool

	mailboxSize int

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewInProcBus constructs an empty in-process bus.
func NewInProcBus(optFns ...func(o *Options)) *InProcBus {
	opts := Options{MailboxSize: 64}
	for _, fn := range optFns {
		fn(&opts)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &InProcBus{
		topics:      make(map[string]map[*subscriber]struct{}),
		mailboxSize: opts.MailboxSize,
		ctx:         ctx,
		cancel:      cancel,
		group:       &errgroup.Group{},
	}
}

type subscriber struct {
	bus     *InProcBus
	topic   string
	handler Handler
	mailbox chan core.Envelope
	quit    chan struct{}
	once    sync.Once
}

// Unsubscribe implements Subscription. Queued but undelivered envelopes are
// discarded.
func (s *subscriber) Unsubscribe() {
	s.once.Do(func() {
		close(s.quit)

		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		if subs, ok := s.bus.topics[s.topic]; ok {
			delete(subs, s)
			if len(subs) == 0 {
				delete(s.bus.topics, s.topic)
			}
		}
	})
}

// loop drains the mailbox until the subscription or the bus shuts down.
// A handler panic terminates the loop and surfaces through Close.
func (s *subscriber) loop(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic on topic %s: %v", s.topic, r)
		}
	}()

	for {
		select {
		case <-s.quit:
			return nil
		case <-ctx.Done():
			return nil
		case env := <-s.mailbox:
			s.handler(ctx, env)
		}
	}
}

// Subscribe implements Bus.
func (b *InProcBus) Subscribe(topic string, h Handler) (Subscription, error) {
	if h == nil {
		return nil, errors.New("handler must not be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	sub := &subscriber{
		bus:     b,
		topic:   topic,
		handler: h,
		mailbox: make(chan core.Envelope, b.mailboxSize),
		quit:    make(chan struct{}),
	}

	if _, ok := b.topics[topic]; !ok {
		b.topics[topic] = make(map[*subscriber]struct{})
	}
	b.topics[topic][sub] = struct{}{}

	b.group.Go(func() error { return sub.loop(b.ctx) })

	return sub, nil
}

// Publish implements Bus. The envelope is enqueued to every subscriber of the
// topic; a subscriber that unsubscribes mid-publish is skipped.
func (b *InProcBus) Publish(ctx context.Context, topic string, env core.Envelope) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	subs := make([]*subscriber, 0, len(b.topics[topic]))
	for sub := range b.topics[topic] {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.mailbox <- env:
		case <-sub.quit:
		case <-b.ctx.Done():
			return ErrBusClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// Close implements Bus. It stops all subscriptions, waits for mailbox
// goroutines to exit and returns the first handler panic observed, if any.
func (b *InProcBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true

	var subs []*subscriber
	for _, topicSubs := range b.topics {
		for sub := range topicSubs {
			subs = append(subs, sub)
		}
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	b.cancel()

	return b.group.Wait()
}
