package observe

import "sync"

// Filter narrows the events returned by CollectorSink.Events. Zero values
// match everything.
type Filter struct {
	Kind     Kind
	Severity *Severity
	Source   string
	// Limit keeps only the most recent N matching events when positive.
	Limit int
}

func (f Filter) matches(ev Event) bool {
	if f.Kind != "" && ev.Kind != f.Kind {
		return false
	}
	if f.Severity != nil && ev.Severity != *f.Severity {
		return false
	}
	if f.Source != "" && ev.Source != f.Source {
		return false
	}
	return true
}

// CollectorSink retains lifecycle events in memory for later inspection.
// Safe for concurrent use; best suited for tests, debugging UIs and
// post-run audits.
type CollectorSink struct {
	mu     sync.RWMutex
	events []Event
}

// NewCollectorSink constructs an empty collector.
func NewCollectorSink() *CollectorSink {
	return &CollectorSink{}
}

// OnEvent implements Sink.
func (c *CollectorSink) OnEvent(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

// Events returns a copy of the retained events matching the filter, in
// emission order.
func (c *CollectorSink) Events(f Filter) []Event {
	c.mu.RLock()
	defer c.mu.RUnlock()

	matched := make([]Event, 0, len(c.events))
	for _, ev := range c.events {
		if f.matches(ev) {
			matched = append(matched, ev)
		}
	}

	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[len(matched)-f.Limit:]
	}

	return matched
}

// All returns a copy of every retained event in emission order.
func (c *CollectorSink) All() []Event {
	return c.Events(Filter{})
}

// Clear discards all retained events.
func (c *CollectorSink) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}
