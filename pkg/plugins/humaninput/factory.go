package humaninput

import (
	"context"

	"github.com/stagehand-io/stagehand/pkg/protocol"
)

// Factory creates human_input plugin instances.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) ID() string {
	return "human_input"
}

func (*Factory) Name() string {
	return "Human Input"
}

func (*Factory) Description() string {
	return "Publishes waiting_for_input and suspends the step until an external controller publishes input_received for the run."
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
			"prompt": map[string]any{
				"type":        "string",
				"description": "Prompt carried on the waiting_for_input event",
				"default":     "Input required",
			},
		},
	}
}
