package checkpoint

import (
	"context"

	"github.com/stagehand-io/stagehand/pkg/persistence"
	"github.com/stagehand-io/stagehand/pkg/protocol"
)

// Factory creates checkpoint plugin instances bound to an attempt repository.
type Factory struct {
	attempts persistence.AttemptRepository
}

func NewFactory(attempts persistence.AttemptRepository) *Factory {
	return &Factory{attempts: attempts}
}

func (*Factory) ID() string {
	return "checkpoint"
}

func (*Factory) Name() string {
	return "Checkpoint"
}

func (*Factory) Description() string {
	return "Demonstrates crash-resume: fails while the persisted attempt counter is below fail_until, succeeds afterwards."
}

func (f *Factory) Create(_ context.Context, config map[string]any) (protocol.Plugin, error) {
	if config == nil {
		config = map[string]any{}
	}

	return NewPlugin(f.attempts, config), nil
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"fail_until": map[string]any{
				"type":        "integer",
				"description": "First attempt number that succeeds",
				"default":     2,
				"minimum":     1,
			},
		},
	}
}
