package manager

import (
	"context"
	"fmt"
	"sync"

	"github.com/convoke-dev/convoke/core"
)

// MockCompleter is a lightweight in-memory Completer useful for tests and
// examples. Scripted responses are consumed in FIFO order; when the queue is
// empty the fallback function is consulted, and if none is set Complete
// returns an error.
type MockCompleter struct {
	mu       sync.Mutex
	queue    []string
	fallback func(messages []core.ChatMessage) string
}

// NewMockCompleter constructs a MockCompleter pre-loaded with responses.
func NewMockCompleter(responses ...string) *MockCompleter {
	return &MockCompleter{queue: append([]string(nil), responses...)}
}

// Enqueue appends scripted responses to the queue.
func (m *MockCompleter) Enqueue(responses ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, responses...)
}

// SetFallback registers a function invoked when the queue is exhausted.
func (m *MockCompleter) SetFallback(fn func(messages []core.ChatMessage) string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = fn
}

// Remaining reports how many scripted responses are still queued.
func (m *MockCompleter) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Complete implements Completer.
func (m *MockCompleter) Complete(ctx context.Context, messages []core.ChatMessage) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.queue) > 0 {
		resp := m.queue[0]
		m.queue = m.queue[1:]
		return resp, nil
	}

	if m.fallback != nil {
		return m.fallback(messages), nil
	}

	return "", fmt.Errorf("no scripted response available")
}
