package helloworld

import (
	"context"

	"github.com/stagehand-io/stagehand/pkg/protocol"
)

// Factory creates hello_world plugin instances.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) ID() string {
	return "hello_world"
}

func (*Factory) Name() string {
	return "Hello World"
}

func (*Factory) Description() string {
	return "Produces a greeting message. The message is configurable."
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
				"description": "The greeting to produce",
				"default":     "Hello World",
			},
		},
	}
}
