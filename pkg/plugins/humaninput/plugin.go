// Package humaninput provides the pausing plugin for the human-in-the-loop
// handshake: it publishes waiting_for_input, suspends on a run-scoped wait
// channel and resumes when a matching input_received event arrives.
package humaninput

import (
	"context"
	"errors"
	"sync"

	"github.com/stagehand-io/stagehand/pkg/eventbus"
	"github.com/stagehand-io/stagehand/pkg/events"
	"github.com/stagehand-io/stagehand/pkg/models"
)

type Plugin struct {
	prompt string
	bus    eventbus.Bus

	// One instance serves every concurrent run, so wait channels are keyed
	// by run id and created fresh per Execute call: a resume signal can only
	// release the run it was addressed to.
	mu      sync.Mutex
	waiters map[string]chan *events.InputReceived
}

func NewPlugin(config map[string]any) *Plugin {
	prompt, _ := config["prompt"].(string)
	if prompt == "" {
		prompt = "Input required"
	}

	return &Plugin{
		prompt:  prompt,
		waiters: make(map[string]chan *events.InputReceived),
	}
}

func (p *Plugin) Name() string {
	return "human_input"
}

func (p *Plugin) Initialize(_ context.Context, _ map[string]any, bus eventbus.Bus) error {
	if bus == nil {
		return errors.New("human_input plugin requires an event bus")
	}

	p.bus = bus
	bus.Subscribe(events.InputReceivedEvent, p.onInputReceived)

	return nil
}

func (p *Plugin) Execute(ctx context.Context, execCtx models.ExecutionContext) (*models.PluginResult, error) {
	if p.bus == nil {
		return nil, errors.New("human_input plugin executed before initialization")
	}

	wait := make(chan *events.InputReceived, 1)

	p.mu.Lock()
	p.waiters[execCtx.ID] = wait
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.waiters, execCtx.ID)
		p.mu.Unlock()
	}()

	prompt := p.prompt
	if value, ok := execCtx.Inputs["prompt"].(string); ok {
		prompt = value
	}

	err := p.bus.Publish(ctx, execCtx.ID, &events.WaitingForInput{
		BaseEvent: events.NewBaseEvent(execCtx.WorkflowID, execCtx.ID),
		StepUID:   execCtx.StepUID,
		Prompt:    prompt,
	})
	if err != nil {
		return nil, err
	}

	select {
	case received := <-wait:
		if received.Abandoned {
			return models.NewFailureResult("input wait abandoned"), nil
		}

		return models.NewSuccessResult(map[string]any{"input": received.Value}), nil
	case <-ctx.Done():
		return models.NewFailureResult("input wait abandoned: " + ctx.Err().Error()), nil
	}
}

// Cleanup releases every pending waiter with the abandoned payload so no
// suspended Execute call outlives the plugin.
func (p *Plugin) Cleanup(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for runID, wait := range p.waiters {
		select {
		case wait <- &events.InputReceived{Abandoned: true}:
		default:
		}

		delete(p.waiters, runID)
	}

	return nil
}

func (p *Plugin) Capabilities() []models.Capability {
	return []models.Capability{
		{Name: "human_input", Description: "Suspends the run until input_received delivers a value for it"},
	}
}

func (p *Plugin) onInputReceived(_ context.Context, event eventbus.Event) error {
	received, ok := event.(*events.InputReceived)
	if !ok {
		return nil
	}

	p.mu.Lock()
	wait, waiting := p.waiters[received.ExecutionID]
	p.mu.Unlock()

	if !waiting {
		// Input for a run that is not suspended here; not our business.
		return nil
	}

	select {
	case wait <- received:
	default:
		// Duplicate delivery for the same invocation; first one wins.
	}

	return nil
}
