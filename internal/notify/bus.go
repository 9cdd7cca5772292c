package notify

import (
	"context"
	"sync"

	"github.com/tair/stock-ledger/pkg/logger"
)

type registration struct {
	id      uint64
	handler Handler
}

// Bus is an in-process Notifier and Subscriber. Handlers run synchronously on the
// notifying goroutine, once per topic they are registered for.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	topics map[string][]registration
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{topics: make(map[string][]registration)}
}

// Subscribe registers handler for topic
func (b *Bus) Subscribe(topic string, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.topics[topic] = append(b.topics[topic], registration{id: id, handler: handler})

	logger.Logger.Debug().
		Str("topic", topic).
		Uint64("subscription_id", id).
		Msg("Change subscriber registered")

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(topic, id) })
	}
}

func (b *Bus) remove(topic string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	regs := b.topics[topic]
	for i, r := range regs {
		if r.id == id {
			b.topics[topic] = append(regs[:i:i], regs[i+1:]...)
			break
		}
	}
	if len(b.topics[topic]) == 0 {
		delete(b.topics, topic)
	}
}

// Notify dispatches event to subscribers of its key, its marker and AllTopics
func (b *Bus) Notify(ctx context.Context, event Event) error {
	for _, h := range b.handlersFor(event) {
		h(ctx, event)
	}
	return nil
}

func (b *Bus) handlersFor(event Event) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	topics := []string{event.Key, AllTopics}
	if event.Marker != "" && event.Marker != event.Key {
		topics = append(topics, event.Marker)
	}

	var handlers []Handler
	for _, t := range topics {
		for _, r := range b.topics[t] {
			handlers = append(handlers, r.handler)
		}
	}
	return handlers
}
