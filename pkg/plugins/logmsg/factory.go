package logmsg

import (
	"context"

	"github.com/stagehand-io/stagehand/pkg/protocol"
)

// Factory creates log plugin instances.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) ID() string {
	return "log"
}

func (*Factory) Name() string {
	return "Log"
}

func (*Factory) Description() string {
	return "Logs a message at a specified level. The 'message' input overrides the configured message."
}

func (f *Factory) Create(_ context.Context, config map[string]any) (protocol.Plugin, error) {
	if config == nil {
		config = map[string]any{}
	}

	return NewPlugin(config), nil
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "The message to log",
			},
			"level": map[string]any{
				"type":        "string",
				"description": "Log level for the message",
				"default":     "info",
				"enum":        []string{"debug", "info", "warn", "warning", "error"},
			},
		},
	}
}
