package eventbus_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stagehand-io/stagehand/pkg/channels/gochannel"
	"github.com/stagehand-io/stagehand/pkg/eventbus"
	"github.com/stagehand-io/stagehand/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRelay(t *testing.T) (*eventbus.InProcessBus, *eventbus.Relay, message.Publisher, message.Subscriber) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	publisher, subscriber, err := gochannel.CreateTestChannel(watermill.NewSlogLogger(logger))
	require.NoError(t, err)

	bus := eventbus.NewInProcessBus()
	relay := eventbus.NewRelay(bus, publisher, subscriber, logger)

	return bus, relay, publisher, subscriber
}

func TestRelay_Forward_MirrorsLocalEvents(t *testing.T) {
	bus, relay, _, subscriber := newTestRelay(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := subscriber.Subscribe(ctx, events.Topic)
	require.NoError(t, err)

	relay.Forward(events.RunStartedEvent)

	err = bus.Publish(ctx, "run-1", &events.RunStarted{
		BaseEvent: events.NewBaseEvent("wf-1", "run-1"),
		StepCount: 2,
	})
	require.NoError(t, err)

	select {
	case msg := <-messages:
		msg.Ack()

		assert.Equal(t, string(events.RunStartedEvent), msg.Metadata.Get(events.EventTypeMetadataKey))

		var decoded events.RunStarted
		require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
		assert.Equal(t, "run-1", decoded.ExecutionID)
		assert.Equal(t, 2, decoded.StepCount)
	case <-ctx.Done():
		t.Fatal("no event mirrored onto the channel")
	}
}

func TestRelay_Run_InjectsInputCommand(t *testing.T) {
	bus, relay, publisher, _ := newTestRelay(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan *events.InputReceived, 1)

	bus.Subscribe(events.InputReceivedEvent, func(_ context.Context, event eventbus.Event) error {
		if ev, ok := event.(*events.InputReceived); ok {
			received <- ev
		}

		return nil
	})

	go func() {
		_ = relay.Run(ctx)
	}()

	payload, err := json.Marshal(&events.InputReceived{
		BaseEvent: events.NewBaseEvent("wf-1", "run-1"),
		Value:     "approved",
	})
	require.NoError(t, err)

	msg := message.NewMessage(watermill.NewULID(), payload)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(events.InputReceivedEvent))
	msg.Metadata.Set(events.EventMetadataKey, "run-1")

	require.NoError(t, publisher.Publish(events.CommandTopic, msg))

	select {
	case ev := <-received:
		assert.Equal(t, "run-1", ev.ExecutionID)
		assert.Equal(t, "approved", ev.Value)
	case <-ctx.Done():
		t.Fatal("command never reached the local bus")
	}
}

func TestRelay_Run_DropsUnknownCommands(t *testing.T) {
	bus, relay, publisher, _ := newTestRelay(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var sawAnything bool

	bus.Subscribe(events.InputReceivedEvent, func(_ context.Context, _ eventbus.Event) error {
		sawAnything = true

		return nil
	})
	bus.Subscribe(events.CancelRequestedEvent, func(_ context.Context, _ eventbus.Event) error {
		sawAnything = true

		return nil
	})

	go func() {
		_ = relay.Run(ctx)
	}()

	msg := message.NewMessage(watermill.NewULID(), []byte(`{}`))
	msg.Metadata.Set(events.EventTypeMetadataKey, "run.started")

	require.NoError(t, publisher.Publish(events.CommandTopic, msg))

	// With BlockPublishUntilSubscriberAck the publish above only returns once
	// the relay has acked the message, so a short settle is enough.
	time.Sleep(50 * time.Millisecond)
	assert.False(t, sawAnything)
}
