package eventbus

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stagehand-io/stagehand/pkg/events"
)

// Relay bridges the in-process bus and a watermill channel so a controller
// outside the process can observe run events and inject commands (input for
// suspended steps, cancellation) back in.
type Relay struct {
	bus        Bus
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     *slog.Logger
}

func NewRelay(bus Bus, publisher message.Publisher, subscriber message.Subscriber, logger *slog.Logger) *Relay {
	return &Relay{
		bus:        bus,
		publisher:  publisher,
		subscriber: subscriber,
		logger:     logger.With("module", "event_relay"),
	}
}

// Forward mirrors the given local event types onto the outbound topic.
func (r *Relay) Forward(eventTypes ...events.EventType) {
	for _, eventType := range eventTypes {
		r.bus.Subscribe(eventType, r.forwardHandler(eventType))
	}
}

func (r *Relay) forwardHandler(eventType events.EventType) Handler {
	return func(_ context.Context, event Event) error {
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}

		msg := message.NewMessage("msg-"+watermill.NewULID(), payload)
		msg.Metadata.Set(events.EventTypeMetadataKey, string(eventType))

		return r.publisher.Publish(events.Topic, msg)
	}
}

// Run consumes controller commands from the command topic and republishes
// them on the local bus. It blocks until ctx is cancelled and the subscriber
// channel is drained.
func (r *Relay) Run(ctx context.Context) error {
	messages, err := r.subscriber.Subscribe(ctx, events.CommandTopic)
	if err != nil {
		return err
	}

	for msg := range messages {
		r.handleCommand(ctx, msg)
	}

	return nil
}

func (r *Relay) handleCommand(ctx context.Context, msg *message.Message) {
	eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))

	var event Event

	switch eventType {
	case events.InputReceivedEvent:
		event = &events.InputReceived{}
	case events.CancelRequestedEvent:
		event = &events.CancelRequested{}
	default:
		r.logger.Warn("Dropping unknown command", "event_type", eventType)
		msg.Ack()

		return
	}

	if err := json.Unmarshal(msg.Payload, event); err != nil {
		r.logger.Error("Failed to decode command", "event_type", eventType, "error", err)
		msg.Nack()

		return
	}

	if err := r.bus.Publish(ctx, msg.Metadata.Get(events.EventMetadataKey), event); err != nil {
		r.logger.Error("Failed to publish command on local bus", "event_type", eventType, "error", err)
		msg.Nack()

		return
	}

	msg.Ack()
}
