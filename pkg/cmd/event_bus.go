package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stagehand-io/stagehand/pkg/channels/gochannel"
	"github.com/stagehand-io/stagehand/pkg/channels/kafka"
)

// NewEventChannel creates the watermill publisher and subscriber pair the
// relay mirrors run events onto and consumes commands from.
func NewEventChannel(provider string, logger *slog.Logger) (message.Publisher, message.Subscriber, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		return kafka.CreateChannel(wmLogger, "stagehand")
	case "memory":
		return gochannel.CreateChannel(wmLogger)
	default:
		return nil, nil, fmt.Errorf("unsupported event channel provider: %q", provider)
	}
}
