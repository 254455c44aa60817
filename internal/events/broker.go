// Package events fans application events out to connected clients over
// SSE and WebSocket.
package events

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Event is the wire shape pushed to clients.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

const subscriberBufferSize = 16

// Broker maintains the set of subscribers and broadcasts events to
// all of them.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[chan []byte]struct{}
	logger      *slog.Logger
}

func NewBroker(logger *slog.Logger) *Broker {
	return &Broker{
		subscribers: make(map[chan []byte]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a new subscriber channel. The caller must call
// Unsubscribe when done.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, subscriberBufferSize)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.mu.Lock()
	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish broadcasts an event to every subscriber.
func (b *Broker) Publish(eventType string, data any) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		b.logger.Error("marshal event", "type", eventType, "error", err)
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers {
		select {
		case ch <- payload:
		default:
			// Subscriber buffer full — drop rather than block the publisher
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
