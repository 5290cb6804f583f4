package uppercase

import (
	"context"

	"github.com/stagehand-io/stagehand/pkg/protocol"
)

// Factory creates to_upper plugin instances.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) ID() string {
	return "to_upper"
}

func (*Factory) Name() string {
	return "To Upper"
}

func (*Factory) Description() string {
	return "Upper-cases the 'input_string' input into the 'output_string' output."
}

func (f *Factory) Create(_ context.Context, _ map[string]any) (protocol.Plugin, error) {
	return NewPlugin(), nil
}

func (f *Factory) Schema() map[string]any {
	return nil
}
