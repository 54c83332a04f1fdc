package observe

import (
	"sync"
	"sync/atomic"
)

// Sink consumes lifecycle events. Implementations should return quickly;
// slow consumers should buffer internally. A sink is never invoked
// concurrently by a single Hook.
type Sink interface {
	OnEvent(ev Event)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(ev Event)

// OnEvent implements Sink.
func (f SinkFunc) OnEvent(ev Event) { f(ev) }

// Hook decouples event emission from sink processing. Emit never blocks the
// caller: events are queued to a buffered channel drained by a single
// goroutine, and are counted as dropped once the buffer is full. A Hook with
// a nil sink discards everything at zero cost.
type Hook struct {
	sink Sink
	ch   chan Event
	done chan struct{}

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

// NewHook constructs a Hook dispatching to sink with the given buffer size.
// A nil sink yields a no-op hook; buffer sizes below 1 default to 64.
func NewHook(sink Sink, buffer int) *Hook {
	h := &Hook{sink: sink}
	if sink == nil {
		return h
	}

	if buffer < 1 {
		buffer = 64
	}
	h.ch = make(chan Event, buffer)
	h.done = make(chan struct{})

	go func() {
		defer close(h.done)
		for ev := range h.ch {
			h.sink.OnEvent(ev)
		}
	}()

	return h
}

// Emit queues an event for delivery. It never blocks; events are dropped and
// counted when the buffer is full or the hook is closed.
func (h *Hook) Emit(ev Event) {
	if h == nil || h.sink == nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		h.dropped.Add(1)
		return
	}

	select {
	case h.ch <- ev:
	default:
		h.dropped.Add(1)
	}
}

// Dropped returns the number of events discarded due to a full buffer or a
// closed hook.
func (h *Hook) Dropped() uint64 {
	if h == nil {
		return 0
	}
	return h.dropped.Load()
}

// Close flushes queued events to the sink and stops the dispatcher. Emit
// calls after Close are discarded. Safe to call more than once.
func (h *Hook) Close() {
	if h == nil || h.sink == nil {
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	close(h.ch)
	h.mu.Unlock()

	<-h.done
}
