package server

import (
	"sync"

	"github.com/ecoquest/ecoquest/internal/quest"
)

// Broker is an in-process pub/sub for hunt events, keyed by hunt ID. It
// implements quest.Publisher.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan quest.Event]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan quest.Event]struct{}),
	}
}

// Subscribe returns a channel that receives events for the given hunt.
func (b *Broker) Subscribe(huntID string) chan quest.Event {
	ch := make(chan quest.Event, 16)
	b.mu.Lock()
	if b.subs[huntID] == nil {
		b.subs[huntID] = make(map[chan quest.Event]struct{})
	}
	b.subs[huntID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the hunt's subscribers.
func (b *Broker) Unsubscribe(huntID string, ch chan quest.Event) {
	b.mu.Lock()
	delete(b.subs[huntID], ch)
	if len(b.subs[huntID]) == 0 {
		delete(b.subs, huntID)
	}
	b.mu.Unlock()
}

// Publish sends an event to all subscribers of the given hunt.
func (b *Broker) Publish(huntID string, event quest.Event) {
	b.mu.RLock()
	for ch := range b.subs[huntID] {
		select {
		case ch <- event:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}

func (b *Broker) subscribers(huntID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[huntID])
}
