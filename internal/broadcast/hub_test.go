package broadcast

import (
	"testing"
	"time"
)

func TestSubscribeAndPublish(t *testing.T) {
	hub := NewHub()

	id1, ch1 := hub.Subscribe()
	id2, ch2 := hub.Subscribe()
	defer hub.Unsubscribe(id1)
	defer hub.Unsubscribe(id2)

	if hub.SubscriberCount() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", hub.SubscriberCount())
	}

	hub.Publish([]byte("hello"))

	for _, ch := range []<-chan []byte{ch1, ch2} {
		select {
		case msg := <-ch:
			if string(msg) != "hello" {
				t.Errorf("unexpected message: %s", msg)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for message")
		}
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub()

	id, ch := hub.Subscribe()
	hub.Unsubscribe(id)

	if _, open := <-ch; open {
		t.Error("expected closed channel")
	}
	if hub.SubscriberCount() != 0 {
		t.Errorf("expected no subscribers, got %d", hub.SubscriberCount())
	}

	// Second unsubscribe is a no-op.
	hub.Unsubscribe(id)
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	hub := NewHub()

	slow, _ := hub.Subscribe()
	defer hub.Unsubscribe(slow)
	fast, fastCh := hub.Subscribe()
	defer hub.Unsubscribe(fast)

	// Overflow the slow subscriber's buffer without ever reading from it.
	// Publishing must still complete promptly.
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer+5; i++ {
			hub.Publish([]byte("msg"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on slow subscriber")
	}

	// The fast subscriber still got a full buffer's worth.
	received := 0
	for {
		select {
		case <-fastCh:
			received++
		default:
			if received < subscriberBuffer {
				t.Errorf("expected at least %d buffered messages, got %d", subscriberBuffer, received)
			}
			return
		}
	}
}
