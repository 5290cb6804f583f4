// Package logmsg provides a plugin that logs a message at a configured level.
package logmsg

import (
	"context"
	"errors"
	"log/slog"

	"github.com/stagehand-io/stagehand/pkg/eventbus"
	"github.com/stagehand-io/stagehand/pkg/models"
)

type Plugin struct {
	Message string
	Level   string

	logger *slog.Logger
}

func NewPlugin(config map[string]any) *Plugin {
	message, _ := config["message"].(string)

	level, _ := config["level"].(string)
	if level == "" {
		level = "info"
	}

	return &Plugin{Message: message, Level: level}
}

func (p *Plugin) Name() string {
	return "log"
}

func (p *Plugin) Initialize(_ context.Context, _ map[string]any, _ eventbus.Bus) error {
	p.logger = slog.With("module", "plugin.log")

	return nil
}

func (p *Plugin) Execute(ctx context.Context, execCtx models.ExecutionContext) (*models.PluginResult, error) {
	if p.logger == nil {
		return nil, errors.New("log plugin executed before initialization")
	}

	// An input mapping overrides the configured message.
	message := p.Message
	if value, ok := execCtx.Inputs["message"].(string); ok {
		message = value
	}

	logger := p.logger.With("workflow_id", execCtx.WorkflowID, "run_id", execCtx.ID, "step_uid", execCtx.StepUID)

	switch p.Level {
	case "debug":
		logger.DebugContext(ctx, message)
	case "warn", "warning":
		logger.WarnContext(ctx, message)
	case "error":
		logger.ErrorContext(ctx, message)
	default:
		logger.InfoContext(ctx, message)
	}

	return models.NewSuccessResult(map[string]any{
		"message": message,
		"level":   p.Level,
	}), nil
}

func (p *Plugin) Cleanup(_ context.Context) error {
	return nil
}

func (p *Plugin) Capabilities() []models.Capability {
	return []models.Capability{
		{Name: "log", Description: "Logs a message at a configured level"},
	}
}
