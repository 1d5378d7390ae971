package lifecycle

import (
	"context"
	"sync"
)

// SignalHandler handles a published signal.
type SignalHandler func(context.Context, Signal) error

// Dispatcher allows signal publication/subscription within one process.
type Dispatcher interface {
	Publish(ctx context.Context, signal Signal) error
	Subscribe(signalType SignalType, handler SignalHandler) *Subscription
}

// Subscription is a handle for one registered handler. Components cancel it
// when they unmount so signals stop arriving.
type Subscription struct {
	cancel func()
	once   sync.Once
}

// Cancel removes the handler from the dispatcher.
func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

// inMemoryDispatcher is a simple synchronous dispatcher.
type inMemoryDispatcher struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[SignalType]map[int]SignalHandler
}

// NewInMemoryDispatcher creates a dispatcher instance.
func NewInMemoryDispatcher() Dispatcher {
	return &inMemoryDispatcher{
		listeners: make(map[SignalType]map[int]SignalHandler),
	}
}

// Publish synchronously invokes handlers for the given signal. Handler errors
// do not stop delivery to the remaining handlers.
func (d *inMemoryDispatcher) Publish(ctx context.Context, signal Signal) error {
	d.mu.RLock()
	handlers := make([]SignalHandler, 0, len(d.listeners[signal.Type]))
	for _, handler := range d.listeners[signal.Type] {
		handlers = append(handlers, handler)
	}
	d.mu.RUnlock()

	for _, handler := range handlers {
		_ = handler(ctx, signal)
	}
	return nil
}

// Subscribe registers a handler for the given signal type.
func (d *inMemoryDispatcher) Subscribe(signalType SignalType, handler SignalHandler) *Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listeners[signalType] == nil {
		d.listeners[signalType] = make(map[int]SignalHandler)
	}
	id := d.nextID
	d.nextID++
	d.listeners[signalType][id] = handler

	return &Subscription{cancel: func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.listeners[signalType], id)
	}}
}
