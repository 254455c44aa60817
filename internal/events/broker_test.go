package events

import (
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	broker := NewBroker(slog.Default())

	ch1 := broker.Subscribe()
	ch2 := broker.Subscribe()

	if got := broker.SubscriberCount(); got != 2 {
		t.Fatalf("expected 2 subscribers, got %d", got)
	}

	broker.Unsubscribe(ch1)

	if got := broker.SubscriberCount(); got != 1 {
		t.Fatalf("expected 1 subscriber after unsubscribe, got %d", got)
	}

	broker.Unsubscribe(ch2)

	if got := broker.SubscriberCount(); got != 0 {
		t.Fatalf("expected 0 subscribers, got %d", got)
	}
}

func TestDoubleUnsubscribe(t *testing.T) {
	broker := NewBroker(slog.Default())
	ch := broker.Subscribe()
	broker.Unsubscribe(ch)
	// Should not panic
	broker.Unsubscribe(ch)

	if got := broker.SubscriberCount(); got != 0 {
		t.Fatalf("expected 0 subscribers, got %d", got)
	}
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	broker := NewBroker(slog.Default())

	ch1 := broker.Subscribe()
	ch2 := broker.Subscribe()

	broker.Publish("task_completed", map[string]any{"instance_id": float64(42)})

	for _, ch := range []chan []byte{ch1, ch2} {
		select {
		case payload := <-ch:
			var got Event
			if err := json.Unmarshal(payload, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Type != "task_completed" {
				t.Errorf("expected type task_completed, got %s", got.Type)
			}
			data, ok := got.Data.(map[string]any)
			if !ok {
				t.Fatalf("expected map data, got %T", got.Data)
			}
			if data["instance_id"] != float64(42) {
				t.Errorf("expected instance_id 42, got %v", data["instance_id"])
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for event")
		}
	}

	broker.Unsubscribe(ch1)
	broker.Unsubscribe(ch2)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	broker := NewBroker(slog.Default())
	// Should not panic
	broker.Publish("daily_reset", map[string]int{"created": 3})
}

func TestPublishFullBuffer(t *testing.T) {
	broker := NewBroker(slog.Default())

	ch := broker.Subscribe()

	// Fill the subscriber's buffer
	for i := 0; i < subscriberBufferSize; i++ {
		broker.Publish("ping", nil)
	}

	// This should drop, not panic or block
	broker.Publish("dropped", nil)

	count := 0
	for {
		select {
		case <-ch:
			count++
		default:
			goto done
		}
	}
done:
	if count != subscriberBufferSize {
		t.Errorf("expected %d events, got %d", subscriberBufferSize, count)
	}

	broker.Unsubscribe(ch)
}

func TestEventWithoutData(t *testing.T) {
	broker := NewBroker(slog.Default())
	ch := broker.Subscribe()

	broker.Publish("connected", nil)

	select {
	case payload := <-ch:
		if string(payload) != `{"type":"connected"}` {
			t.Errorf("expected bare type payload, got %s", payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}

	broker.Unsubscribe(ch)
}

func TestConcurrentAccess(t *testing.T) {
	broker := NewBroker(slog.Default())
	var wg sync.WaitGroup

	// Subscribe, publish, and unsubscribe concurrently
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch := broker.Subscribe()
			broker.Publish("concurrent", nil)
			for {
				select {
				case <-ch:
				default:
					broker.Unsubscribe(ch)
					return
				}
			}
		}()
	}

	wg.Wait()

	if got := broker.SubscriberCount(); got != 0 {
		t.Errorf("expected 0 subscribers after concurrent test, got %d", got)
	}
}
