package events

import (
	"context"
	"sync"
)

// EventHandler consumes one published ticket lifecycle event.
type EventHandler func(context.Context, Event) error

// Dispatcher fans ticket lifecycle events out to registered handlers.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// inMemoryDispatcher delivers events synchronously, in subscription
// order, on the publisher's goroutine. The import pipeline relies on
// that: the activity feed entry for a ticket is written before the next
// candidate row is processed.
type inMemoryDispatcher struct {
	mu       sync.RWMutex
	handlers map[EventType][]EventHandler
}

// NewInMemoryDispatcher creates an empty dispatcher.
func NewInMemoryDispatcher() Dispatcher {
	return &inMemoryDispatcher{
		handlers: make(map[EventType][]EventHandler),
	}
}

// Publish invokes every handler subscribed to the event's type. A
// handler error does not stop delivery to the remaining handlers.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	handlers := append([]EventHandler{}, d.handlers[event.Type]...)
	d.mu.RUnlock()

	for _, handler := range handlers {
		_ = handler(ctx, event)
	}
	return nil
}

// Subscribe registers a handler for one event type.
func (d *inMemoryDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}
