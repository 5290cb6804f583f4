package eventbus

import (
	"context"
	"errors"
	"sync"

	"github.com/stagehand-io/stagehand/pkg/events"
)

var ErrBusClosed = errors.New("event bus is closed")

// InProcessBus is the single-process Bus implementation. Publishing with zero
// subscribers is a silent no-op; there is no buffering, no retry and no
// delivery guarantee beyond "every handler registered at publish time runs
// to completion before Publish returns".
type InProcessBus struct {
	mu       sync.RWMutex
	handlers map[events.EventType][]Handler
	closed   bool
}

func NewInProcessBus() *InProcessBus {
	return &InProcessBus{
		handlers: make(map[events.EventType][]Handler),
	}
}

// Subscribe registers handler for eventType. There is no unsubscribe;
// subscriptions live as long as the bus. Subscribing to a closed bus drops
// the registration, mirroring the Publish guard.
func (b *InProcessBus) Subscribe(eventType events.EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish delivers event to every handler registered for its type, in
// registration order, and suspends the caller until all of them return.
// Handler errors are joined and returned, never swallowed.
func (b *InProcessBus) Publish(ctx context.Context, _ string, event Event) error {
	b.mu.RLock()

	if b.closed {
		b.mu.RUnlock()

		return ErrBusClosed
	}

	// Snapshot so handlers can subscribe or publish without deadlocking.
	registered := b.handlers[event.GetType()]
	snapshot := make([]Handler, len(registered))
	copy(snapshot, registered)

	b.mu.RUnlock()

	var errs []error

	for _, handler := range snapshot {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (b *InProcessBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true

	return nil
}
