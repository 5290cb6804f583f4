// Package registry holds plugin factories and the configured, initialized
// plugin instances used by an orchestrator run.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/stagehand-io/stagehand/pkg/eventbus"
	"github.com/stagehand-io/stagehand/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

var ErrPluginNotRegistered = errors.New("plugin not registered")

// Registry owns one configured instance per plugin name for the duration of
// an orchestrator run. A Get on an unregistered name is a fatal configuration
// error: the workflow declaration and the registry have diverged.
type Registry struct {
	logger    *slog.Logger
	factories map[string]protocol.PluginFactory
	plugins   map[string]protocol.Plugin
	order     []string // registration order, for deterministic lifecycle walks
	mu        sync.RWMutex

	initialized bool
	cleaned     bool
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger.With("module", "registry"),
		factories: make(map[string]protocol.PluginFactory),
		plugins:   make(map[string]protocol.Plugin),
	}
}

func (r *Registry) RegisterFactory(factory protocol.PluginFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[factory.ID()] = factory
}

// CreatePlugin constructs a plugin via its registered factory, validating the
// configuration against the factory's JSON schema first.
func (r *Registry) CreatePlugin(ctx context.Context, pluginID string, config map[string]any) (protocol.Plugin, error) {
	r.mu.RLock()
	factory, ok := r.factories[pluginID]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("plugin factory %q: %w", pluginID, ErrPluginNotRegistered)
	}

	if config == nil {
		config = map[string]any{}
	}

	if schema := factory.Schema(); schema != nil {
		if err := validateConfig(schema, config); err != nil {
			return nil, fmt.Errorf("invalid configuration for plugin %q: %w", pluginID, err)
		}
	}

	return factory.Create(ctx, config)
}

// Register stores an instance under its own name. Registering twice under the
// same name replaces the earlier instance.
func (r *Registry) Register(plugin protocol.Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := plugin.Name()
	if _, exists := r.plugins[name]; !exists {
		r.order = append(r.order, name)
	}

	r.plugins[name] = plugin
}

func (r *Registry) Get(name string) (protocol.Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plugin, ok := r.plugins[name]
	if !ok {
		return nil, fmt.Errorf("plugin %q: %w", name, ErrPluginNotRegistered)
	}

	return plugin, nil
}

// PluginNames returns registered plugin names in registration order.
func (r *Registry) PluginNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)

	return names
}

// InitializeAll initializes every registered plugin exactly once, in
// registration order. The first failure aborts startup and is reported with
// the failing plugin's name and underlying cause.
func (r *Registry) InitializeAll(ctx context.Context, configsByName map[string]map[string]any, bus eventbus.Bus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return errors.New("registry already initialized")
	}

	for _, name := range r.order {
		if err := r.plugins[name].Initialize(ctx, configsByName[name], bus); err != nil {
			return fmt.Errorf("initialize plugin %q: %w", name, err)
		}

		r.logger.DebugContext(ctx, "Initialized plugin", "plugin", name)
	}

	r.initialized = true

	return nil
}

// CleanupAll calls Cleanup on every registered plugin. Failures are logged
// and never block the remaining cleanups; the second and later calls are
// no-ops so a plugin is cleaned up exactly once per registry lifecycle.
func (r *Registry) CleanupAll(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cleaned {
		return
	}

	r.cleaned = true

	for _, name := range r.order {
		if err := r.plugins[name].Cleanup(ctx); err != nil {
			r.logger.ErrorContext(ctx, "Plugin cleanup failed", "plugin", name, "error", err)
		}
	}
}

func validateConfig(schema, config map[string]any) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return err
	}

	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}

	return errors.New(strings.Join(details, "; "))
}
