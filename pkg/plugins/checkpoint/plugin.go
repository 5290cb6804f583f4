// Package checkpoint provides a crash-aware plugin: its behavior is a
// function of a persisted per-(run, step) attempt counter, so a re-invoked
// run picks up where the previous attempt left off.
package checkpoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/stagehand-io/stagehand/pkg/eventbus"
	"github.com/stagehand-io/stagehand/pkg/models"
	"github.com/stagehand-io/stagehand/pkg/persistence"
)

type Plugin struct {
	attempts    persistence.AttemptRepository
	failUntil   int
	initialized bool
}

func NewPlugin(attempts persistence.AttemptRepository, config map[string]any) *Plugin {
	return &Plugin{
		attempts:  attempts,
		failUntil: intConfig(config, "fail_until", 2),
	}
}

func (p *Plugin) Name() string {
	return "checkpoint"
}

func (p *Plugin) Initialize(_ context.Context, _ map[string]any, _ eventbus.Bus) error {
	if p.attempts == nil {
		return errors.New("checkpoint plugin requires an attempt repository")
	}

	p.initialized = true

	return nil
}

func (p *Plugin) Execute(ctx context.Context, execCtx models.ExecutionContext) (*models.PluginResult, error) {
	if !p.initialized {
		return nil, errors.New("checkpoint plugin executed before initialization")
	}

	attempt, err := p.attempts.IncrementAttempt(ctx, execCtx.ID, execCtx.StepUID)
	if err != nil {
		return nil, fmt.Errorf("failed to increment attempt counter: %w", err)
	}

	if attempt < p.failUntil {
		return models.NewFailureResult(fmt.Sprintf("attempt %d failed, succeeding from attempt %d", attempt, p.failUntil)), nil
	}

	return models.NewSuccessResult(map[string]any{"attempt": attempt}), nil
}

func (p *Plugin) Cleanup(_ context.Context) error {
	return nil
}

func (p *Plugin) Capabilities() []models.Capability {
	return []models.Capability{
		{Name: "checkpoint", Description: "Fails until the persisted attempt counter reaches fail_until"},
	}
}

func intConfig(config map[string]any, key string, fallback int) int {
	switch value := config[key].(type) {
	case int:
		return value
	case float64: // JSON numbers decode as float64
		return int(value)
	default:
		return fallback
	}
}
