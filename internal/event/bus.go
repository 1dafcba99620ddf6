package event

import (
	"context"
	"sync"
)

// Topics published by the write-path services.
const (
	TopicCategories = "shop.categories"
	TopicProducts   = "shop.products"
)

// Event is one domain event emitted after a successful commit.
type Event struct {
	Topic   string
	Key     string
	Payload any
}

type Handler func(ctx context.Context, ev Event)

// Bus is an in-process publish/subscribe fan-out. Services publish after
// their transaction commits; subscribers (cache invalidation, the broker
// forwarder) run synchronously in publish order. Subscriptions happen once
// at startup, so reads take only the shared lock.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

func (b *Bus) Subscribe(topic string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[topic] = append(b.handlers[topic], handler)
}

func (b *Bus) Publish(ctx context.Context, ev Event) {
	b.mu.RLock()
	handlers := b.handlers[ev.Topic]
	b.mu.RUnlock()

	for _, handler := range handlers {
		handler(ctx, ev)
	}
}
