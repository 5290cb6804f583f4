// Package helloworld provides a plugin that produces a configurable greeting.
package helloworld

import (
	"context"
	"errors"

	"github.com/stagehand-io/stagehand/pkg/eventbus"
	"github.com/stagehand-io/stagehand/pkg/models"
)

type Plugin struct {
	message     string
	initialized bool
}

func NewPlugin(config map[string]any) *Plugin {
	message, _ := config["message"].(string)
	if message == "" {
		message = "Hello World"
	}

	return &Plugin{message: message}
}

func (p *Plugin) Name() string {
	return "hello_world"
}

func (p *Plugin) Initialize(_ context.Context, _ map[string]any, _ eventbus.Bus) error {
	p.initialized = true

	return nil
}

func (p *Plugin) Execute(_ context.Context, _ models.ExecutionContext) (*models.PluginResult, error) {
	if !p.initialized {
		return nil, errors.New("hello_world plugin executed before initialization")
	}

	return models.NewSuccessResult(map[string]any{"greeting": p.message}), nil
}

func (p *Plugin) Cleanup(_ context.Context) error {
	return nil
}

func (p *Plugin) Capabilities() []models.Capability {
	return []models.Capability{
		{Name: "greet", Description: "Produces a greeting under the 'greeting' output key"},
	}
}
