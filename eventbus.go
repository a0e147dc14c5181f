package botlang

import (
	"sync"
	"time"
)

const maxSubscribers = 50

// EventType identifies the kind of event.
type EventType string

const (
	EventRunStarted   EventType = "run.started"
	EventRunCompleted EventType = "run.completed"
	EventToolFailed   EventType = "tool.failed"
)

// Event reports a run lifecycle change.
type Event struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id,omitempty"`
	Kind      string    `json:"kind,omitempty"` // run, event or agent
	Name      string    `json:"name,omitempty"` // event or agent name
	Timestamp time.Time `json:"timestamp"`

	// For tool.failed
	Tool  string `json:"tool,omitempty"`
	Error string `json:"error,omitempty"`

	// For run.completed
	Outputs  int           `json:"outputs,omitempty"`
	Errors   int           `json:"errors,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// EventBus fans out events to in-process subscribers.
type EventBus struct {
	subscribers map[chan Event]struct{}
	closed      bool
	mu          sync.RWMutex
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[chan Event]struct{}),
	}
}

// Subscribe returns a channel that receives events, or nil when the bus is
// closed or full. The caller must call Unsubscribe when done.
func (b *EventBus) Subscribe() chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || len(b.subscribers) >= maxSubscribers {
		return nil
	}

	ch := make(chan Event, 64)
	b.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes and closes a subscriber channel.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
}

// Close closes all subscriber channels. Later publishes are dropped.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, ch)
	}
}

// Publish sends an event to all subscribers.
// Non-blocking: if a subscriber's buffer is full, the event is dropped for that subscriber.
func (b *EventBus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
