package server

import (
	"sync"

	"github.com/dorae/dorae/internal/domain"
)

// subscriberBuffer is the number of events a slow subscriber may lag behind.
const subscriberBuffer = 16

// Broker fans engine events out to SSE subscribers. It implements domain.EventPublisher.
type Broker struct {
	clients map[chan domain.Event]struct{}
	mu      sync.RWMutex
}

// NewBroker creates a new Broker.
func NewBroker() *Broker {
	return &Broker{clients: make(map[chan domain.Event]struct{})}
}

// Subscribe registers a new client and returns a channel for receiving events.
func (b *Broker) Subscribe() chan domain.Event {
	ch := make(chan domain.Event, subscriberBuffer)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan domain.Event) {
	b.mu.Lock()
	if _, ok := b.clients[ch]; ok {
		delete(b.clients, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Subscribers returns the number of connected clients.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Publish sends an event to all subscribers without blocking.
// Subscribers with a full buffer miss the event.
func (b *Broker) Publish(event domain.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- event:
		default:
		}
	}
}

var _ domain.EventPublisher = (*Broker)(nil)
