package botlang

import (
	"testing"
)

func TestEventBusFanout(t *testing.T) {
	bus := NewEventBus()
	a, b := bus.Subscribe(), bus.Subscribe()

	bus.Publish(Event{Type: EventRunStarted, Kind: "run"})

	for _, ch := range []chan Event{a, b} {
		e := <-ch
		if e.Type != EventRunStarted {
			t.Errorf("Type = %q, want %q", e.Type, EventRunStarted)
		}
		if e.Timestamp.IsZero() {
			t.Error("Timestamp not set")
		}
	}

	bus.Unsubscribe(a)
	if _, open := <-a; open {
		t.Error("unsubscribed channel should be closed")
	}
	bus.Unsubscribe(a)

	bus.Publish(Event{Type: EventRunCompleted})
	if e := <-b; e.Type != EventRunCompleted {
		t.Errorf("Type = %q, want %q", e.Type, EventRunCompleted)
	}
}

func TestEventBusDropsWhenFull(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe()
	for range cap(ch) + 10 {
		bus.Publish(Event{Type: EventToolFailed})
	}
	if len(ch) != cap(ch) {
		t.Errorf("buffered = %d, want %d", len(ch), cap(ch))
	}
}

func TestEventBusLimitsAndClose(t *testing.T) {
	bus := NewEventBus()
	subs := make([]chan Event, 0, maxSubscribers)
	for range maxSubscribers {
		subs = append(subs, bus.Subscribe())
	}
	if ch := bus.Subscribe(); ch != nil {
		t.Error("Subscribe() beyond the limit should return nil")
	}

	bus.Close()
	for _, ch := range subs {
		if _, open := <-ch; open {
			t.Fatal("channel still open after Close")
		}
	}
	if ch := bus.Subscribe(); ch != nil {
		t.Error("Subscribe() after Close should return nil")
	}
	bus.Publish(Event{Type: EventRunStarted})
}
