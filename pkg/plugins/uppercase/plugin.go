// Package uppercase provides a plugin that upper-cases a string input.
package uppercase

import (
	"context"
	"errors"
	"strings"

	"github.com/stagehand-io/stagehand/pkg/eventbus"
	"github.com/stagehand-io/stagehand/pkg/models"
)

type Plugin struct {
	initialized bool
}

func NewPlugin() *Plugin {
	return &Plugin{}
}

func (p *Plugin) Name() string {
	return "to_upper"
}

func (p *Plugin) Initialize(_ context.Context, _ map[string]any, _ eventbus.Bus) error {
	p.initialized = true

	return nil
}

func (p *Plugin) Execute(_ context.Context, execCtx models.ExecutionContext) (*models.PluginResult, error) {
	if !p.initialized {
		return nil, errors.New("to_upper plugin executed before initialization")
	}

	value, ok := execCtx.Inputs["input_string"]
	if !ok {
		return models.NewFailureResult("missing required input: input_string"), nil
	}

	text, ok := value.(string)
	if !ok {
		return models.NewFailureResult("input_string must be a string"), nil
	}

	return models.NewSuccessResult(map[string]any{"output_string": strings.ToUpper(text)}), nil
}

func (p *Plugin) Cleanup(_ context.Context) error {
	return nil
}

func (p *Plugin) Capabilities() []models.Capability {
	return []models.Capability{
		{Name: "to_upper", Description: "Upper-cases 'input_string' into 'output_string'"},
	}
}

// ValidateInput implements the optional pre-flight check.
func (p *Plugin) ValidateInput(data map[string]any) *models.ValidationResult {
	value, ok := data["input_string"]
	if !ok {
		return models.InvalidInput("missing required input: input_string")
	}

	if _, ok := value.(string); !ok {
		return models.InvalidInput("input_string must be a string")
	}

	return models.ValidInput()
}
