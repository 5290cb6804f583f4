// Package protocol defines the contracts between the orchestrator and
// pluggable units of work.
package protocol

import (
	"context"

	"github.com/stagehand-io/stagehand/pkg/eventbus"
	"github.com/stagehand-io/stagehand/pkg/models"
)

// Plugin is the unit of work abstraction. Instances are owned by the
// registry; the orchestrator only borrows a reference for the duration of one
// Execute call. Because one instance serves every concurrent run, any
// per-run state a plugin holds must be keyed by the run id carried in the
// ExecutionContext.
//
// Execute reports expected failure modes (missing input, upstream call
// failure) through PluginResult with Success=false. A non-nil Go error is the
// fatal channel: the orchestrator aborts the run and does not retry.
type Plugin interface {
	// Name returns the stable, never-empty identifier workflow steps use to
	// reference this plugin.
	Name() string

	// Initialize prepares the plugin for execution and may register event
	// subscriptions. It is called exactly once per plugin lifetime, before
	// any Execute call.
	Initialize(ctx context.Context, config map[string]any, bus eventbus.Bus) error

	Execute(ctx context.Context, execCtx models.ExecutionContext) (*models.PluginResult, error)

	// Cleanup releases resources. It is called exactly once, even if Execute
	// was never called or failed.
	Cleanup(ctx context.Context) error

	// Capabilities is a static self-description used for discovery and
	// documentation, never for dispatch.
	Capabilities() []models.Capability
}

// InputValidator is an optional pre-flight check the orchestrator runs before
// Execute. Plugins that do not implement it are conforming.
type InputValidator interface {
	ValidateInput(data map[string]any) *models.ValidationResult
}

// PluginFactory constructs plugin instances from an opaque configuration
// value. Factories are the startup-time table mapping names to constructors.
type PluginFactory interface {
	ID() string
	Name() string
	Description() string
	Create(ctx context.Context, config map[string]any) (Plugin, error)

	// Schema returns the JSON Schema for the plugin's configuration, or nil
	// when the plugin takes no configuration.
	Schema() map[string]any
}
