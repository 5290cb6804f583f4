// Package eventbus provides the in-process publish/subscribe fabric used for
// run observability and for the pause/resume handshake.
package eventbus

import (
	"context"

	"github.com/stagehand-io/stagehand/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

// Handler receives the published event. Handlers for one publish run
// synchronously, in registration order, on the publisher's goroutine; a
// handler may itself publish or block.
type Handler func(ctx context.Context, event Event) error

type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventSubscriber interface {
	Subscribe(eventType events.EventType, handler Handler)
}

type Bus interface {
	EventPublisher
	EventSubscriber
	Close() error
}
