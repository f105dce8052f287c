package events

import "testing"

func TestPublishReachesAllSubscribers(t *testing.T) {
	bus := NewBus()
	a := bus.Subscribe()
	b := bus.Subscribe()

	bus.Publish(Event{Type: Drift, Client: "codex", Path: "/tmp/config.toml"})

	for _, ch := range []<-chan Event{a, b} {
		select {
		case e := <-ch:
			if e.Type != Drift || e.Client != "codex" {
				t.Errorf("event = %+v", e)
			}
			if e.At.IsZero() {
				t.Error("At not stamped")
			}
		default:
			t.Fatal("subscriber did not receive the event")
		}
	}
}

func TestPublishNeverBlocksOnFullSubscriber(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe()

	// Overfill the buffer; the extra events are dropped, not deadlocked on.
	for i := 0; i < 40; i++ {
		bus.Publish(Event{Type: Info, Message: "tick"})
	}

	received := 0
	for {
		select {
		case <-ch:
			received++
			continue
		default:
		}
		break
	}
	if received == 0 || received > 16 {
		t.Errorf("received = %d, want between 1 and the buffer size", received)
	}
}

func TestCloseEndsSubscribers(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe()
	bus.Close()

	if _, ok := <-ch; ok {
		t.Error("channel should be closed")
	}

	// Publishing after close must not panic.
	bus.Publish(Event{Type: Error, Message: "late"})
}
