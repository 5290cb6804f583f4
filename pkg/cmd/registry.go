// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stagehand-io/stagehand/pkg/persistence"
	"github.com/stagehand-io/stagehand/pkg/plugins/checkpoint"
	"github.com/stagehand-io/stagehand/pkg/plugins/helloworld"
	"github.com/stagehand-io/stagehand/pkg/plugins/humaninput"
	"github.com/stagehand-io/stagehand/pkg/plugins/logmsg"
	"github.com/stagehand-io/stagehand/pkg/plugins/uppercase"
	"github.com/stagehand-io/stagehand/pkg/protocol"
	"github.com/stagehand-io/stagehand/pkg/registry"
)

// NewRegistry builds a registry with the native plugin factories registered
// and one instance of each created with the supplied configuration.
// Instances still need InitializeAll before a run starts.
func NewRegistry(ctx context.Context, logger *slog.Logger, persist persistence.Persistence, configs map[string]map[string]any) (*registry.Registry, error) {
	reg := registry.NewRegistry(logger)

	factories := []protocol.PluginFactory{
		helloworld.NewFactory(),
		uppercase.NewFactory(),
		logmsg.NewFactory(),
		humaninput.NewFactory(),
	}

	if persist != nil {
		factories = append(factories, checkpoint.NewFactory(persist.AttemptRepository()))
	}

	for _, factory := range factories {
		reg.RegisterFactory(factory)

		plugin, err := reg.CreatePlugin(ctx, factory.ID(), configs[factory.ID()])
		if err != nil {
			return nil, fmt.Errorf("create plugin %q: %w", factory.ID(), err)
		}

		reg.Register(plugin)
	}

	return reg, nil
}
