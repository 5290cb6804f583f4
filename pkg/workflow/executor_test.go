package workflow_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stagehand-io/stagehand/pkg/eventbus"
	"github.com/stagehand-io/stagehand/pkg/events"
	"github.com/stagehand-io/stagehand/pkg/mocks"
	"github.com/stagehand-io/stagehand/pkg/models"
	"github.com/stagehand-io/stagehand/pkg/persistence"
	"github.com/stagehand-io/stagehand/pkg/persistence/file"
	"github.com/stagehand-io/stagehand/pkg/plugins/helloworld"
	"github.com/stagehand-io/stagehand/pkg/plugins/humaninput"
	"github.com/stagehand-io/stagehand/pkg/plugins/uppercase"
	"github.com/stagehand-io/stagehand/pkg/protocol"
	"github.com/stagehand-io/stagehand/pkg/registry"
	"github.com/stagehand-io/stagehand/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestHarness(t *testing.T, persist persistence.Persistence) (*workflow.Executor, *eventbus.InProcessBus, *registry.Registry) {
	t.Helper()

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	bus := eventbus.NewInProcessBus()
	reg := registry.NewRegistry(logger)

	factories := []protocol.PluginFactory{
		helloworld.NewFactory(),
		uppercase.NewFactory(),
		humaninput.NewFactory(),
	}

	for _, factory := range factories {
		reg.RegisterFactory(factory)

		plugin, err := reg.CreatePlugin(ctx, factory.ID(), nil)
		require.NoError(t, err)

		reg.Register(plugin)
	}

	executor := workflow.NewExecutor(reg, bus, persist, logger)

	require.NoError(t, reg.InitializeAll(ctx, nil, bus))
	t.Cleanup(func() { reg.CleanupAll(context.Background()) })

	return executor, bus, reg
}

func greetingWorkflow() *models.Workflow {
	return &models.Workflow{
		ID:   "wf-greeting",
		Name: "greeting",
		Steps: []*models.WorkflowStep{
			{
				UID:           "say_hello",
				Name:          "Say hello",
				PluginID:      "hello_world",
				OutputMapping: map[string]string{"greeting": "greeting_text"},
			},
			{
				UID:           "shout_it",
				Name:          "Shout it",
				PluginID:      "to_upper",
				DependsOn:     []string{"say_hello"},
				InputMapping:  map[string]string{"greeting_text": "input_string"},
				OutputMapping: map[string]string{"output_string": "final_greeting"},
			},
		},
	}
}

func TestExecutor_Execute_GreetingEndToEnd(t *testing.T) {
	executor, _, _ := newTestHarness(t, nil)

	plan, err := workflow.BuildPlan(greetingWorkflow())
	require.NoError(t, err)

	result, err := executor.Execute(context.Background(), plan, "run-greeting", nil)
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusCompleted, result.Status)
	assert.Equal(t, "HELLO WORLD", result.State["final_greeting"])
	assert.Equal(t, "Hello World", result.State["greeting_text"])
	assert.Empty(t, result.FailedStep)
}

func TestExecutor_Execute_StepFailureHaltsRun(t *testing.T) {
	executor, _, _ := newTestHarness(t, nil)

	wf := &models.Workflow{
		ID:   "wf-failing",
		Name: "failing",
		Steps: []*models.WorkflowStep{
			{
				// No input mapping, so input_string is absent and the step fails.
				UID:           "shout_nothing",
				Name:          "Shout nothing",
				PluginID:      "to_upper",
				OutputMapping: map[string]string{"output_string": "never_set"},
			},
			{
				UID:           "never_runs",
				Name:          "Never runs",
				PluginID:      "hello_world",
				DependsOn:     []string{"shout_nothing"},
				OutputMapping: map[string]string{"greeting": "late_greeting"},
			},
		},
	}

	plan, err := workflow.BuildPlan(wf)
	require.NoError(t, err)

	result, err := executor.Execute(context.Background(), plan, "run-failing", nil)
	require.NoError(t, err, "an expected step failure is not an executor error")

	assert.Equal(t, models.RunStatusFailed, result.Status)
	assert.Equal(t, "shout_nothing", result.FailedStep)
	assert.NotEmpty(t, result.ErrorMessage)
	assert.NotContains(t, result.State, "late_greeting", "steps after the failure must not run")

	_, tracked := executor.RunStatus("run-failing")
	assert.False(t, tracked, "terminal runs are evicted from the tracker")
}

func TestExecutor_Execute_UnknownPluginIsFatal(t *testing.T) {
	executor, _, _ := newTestHarness(t, nil)

	wf := &models.Workflow{
		ID:   "wf-unknown",
		Name: "unknown",
		Steps: []*models.WorkflowStep{
			{UID: "mystery", Name: "Mystery", PluginID: "no_such_plugin"},
		},
	}

	plan, err := workflow.BuildPlan(wf)
	require.NoError(t, err)

	result, err := executor.Execute(context.Background(), plan, "run-unknown", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, registry.ErrPluginNotRegistered)
	assert.Equal(t, models.RunStatusFailed, result.Status)
	assert.Equal(t, "mystery", result.FailedStep)
}

func TestExecutor_Execute_SkipsSatisfiedSteps(t *testing.T) {
	executor, bus, _ := newTestHarness(t, nil)

	var skipped []string

	bus.Subscribe(events.StepSkippedEvent, func(_ context.Context, event eventbus.Event) error {
		if ev, ok := event.(*events.StepSkipped); ok {
			skipped = append(skipped, ev.StepUID)
		}

		return nil
	})

	plan, err := workflow.BuildPlan(greetingWorkflow())
	require.NoError(t, err)

	// A bag already carrying say_hello's mapped output stands in for the
	// state persisted by a previous attempt of the same run.
	initial := map[string]any{"greeting_text": "already there"}

	result, err := executor.Execute(context.Background(), plan, "run-resumed", initial)
	require.NoError(t, err)

	assert.Equal(t, []string{"say_hello"}, skipped)
	assert.Equal(t, models.RunStatusCompleted, result.Status)
	assert.Equal(t, "already there", result.State["greeting_text"], "skipped step must not overwrite the bag")
	assert.Equal(t, "ALREADY THERE", result.State["final_greeting"])
}

func approvalWorkflow() *models.Workflow {
	return &models.Workflow{
		ID:   "wf-approval",
		Name: "approval",
		Steps: []*models.WorkflowStep{
			{
				UID:           "await_approval",
				Name:          "Await approval",
				PluginID:      "human_input",
				OutputMapping: map[string]string{"input": "approval"},
			},
			{
				UID:           "shout_approval",
				Name:          "Shout approval",
				PluginID:      "to_upper",
				DependsOn:     []string{"await_approval"},
				InputMapping:  map[string]string{"approval": "input_string"},
				OutputMapping: map[string]string{"output_string": "final_approval"},
			},
		},
	}
}

func TestExecutor_Execute_PauseAndResume(t *testing.T) {
	executor, bus, _ := newTestHarness(t, nil)

	plan, err := workflow.BuildPlan(approvalWorkflow())
	require.NoError(t, err)

	type outcome struct {
		result *models.RunResult
		err    error
	}

	done := make(chan outcome, 1)

	go func() {
		result, err := executor.Execute(context.Background(), plan, "run-approval", nil)
		done <- outcome{result, err}
	}()

	require.Eventually(t, func() bool {
		status, ok := executor.RunStatus("run-approval")

		return ok && status == models.RunStatusSuspended
	}, 5*time.Second, 10*time.Millisecond, "run never suspended")

	err = bus.Publish(context.Background(), "run-approval", &events.InputReceived{
		BaseEvent: events.NewBaseEvent("wf-approval", "run-approval"),
		Value:     "X",
	})
	require.NoError(t, err)

	select {
	case out := <-done:
		require.NoError(t, out.err)
		assert.Equal(t, models.RunStatusCompleted, out.result.Status)
		assert.Equal(t, "X", out.result.State["approval"])
		assert.Equal(t, "X", out.result.State["final_approval"])
	case <-time.After(5 * time.Second):
		t.Fatal("run never resumed after input was delivered")
	}
}

func TestExecutor_Execute_NeverResumedStaysSuspended(t *testing.T) {
	executor, _, _ := newTestHarness(t, nil)

	plan, err := workflow.BuildPlan(approvalWorkflow())
	require.NoError(t, err)

	done := make(chan *models.RunResult, 1)

	go func() {
		result, _ := executor.Execute(context.Background(), plan, "run-forgotten", nil)
		done <- result
	}()

	require.Eventually(t, func() bool {
		status, ok := executor.RunStatus("run-forgotten")

		return ok && status == models.RunStatusSuspended
	}, 5*time.Second, 10*time.Millisecond)

	// No input, no timeout: the run holds its suspension indefinitely.
	time.Sleep(100 * time.Millisecond)

	status, ok := executor.RunStatus("run-forgotten")
	require.True(t, ok)
	assert.Equal(t, models.RunStatusSuspended, status)

	select {
	case <-done:
		t.Fatal("suspended run terminated without input")
	default:
	}

	// Cancellation is the only way out.
	require.True(t, executor.CancelRun("run-forgotten"))

	select {
	case result := <-done:
		assert.Equal(t, models.RunStatusCancelled, result.Status)
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled run never terminated")
	}
}

func TestExecutor_Execute_CancelRequestedEvent(t *testing.T) {
	executor, bus, _ := newTestHarness(t, nil)

	plan, err := workflow.BuildPlan(approvalWorkflow())
	require.NoError(t, err)

	done := make(chan *models.RunResult, 1)

	go func() {
		result, _ := executor.Execute(context.Background(), plan, "run-aborted", nil)
		done <- result
	}()

	require.Eventually(t, func() bool {
		status, ok := executor.RunStatus("run-aborted")

		return ok && status == models.RunStatusSuspended
	}, 5*time.Second, 10*time.Millisecond)

	err = bus.Publish(context.Background(), "run-aborted", &events.CancelRequested{
		BaseEvent: events.NewBaseEvent("wf-approval", "run-aborted"),
		Reason:    "operator abort",
	})
	require.NoError(t, err)

	select {
	case result := <-done:
		assert.Equal(t, models.RunStatusCancelled, result.Status)
	case <-time.After(5 * time.Second):
		t.Fatal("cancel request never terminated the run")
	}
}

func TestExecutor_Execute_PersistsSnapshots(t *testing.T) {
	persist := file.NewPersistence(t.TempDir())
	executor, _, _ := newTestHarness(t, persist)

	plan, err := workflow.BuildPlan(greetingWorkflow())
	require.NoError(t, err)

	_, err = executor.Execute(context.Background(), plan, "run-persisted", nil)
	require.NoError(t, err)

	snapshot, err := persist.RunRepository().RunByID(context.Background(), "run-persisted")
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusCompleted, snapshot.Status)
	assert.Equal(t, "HELLO WORLD", snapshot.State["final_greeting"])
}

func TestExecutor_Execute_EvictsTerminalRuns(t *testing.T) {
	persist := file.NewPersistence(t.TempDir())
	executor, _, _ := newTestHarness(t, persist)

	plan, err := workflow.BuildPlan(greetingWorkflow())
	require.NoError(t, err)

	_, err = executor.Execute(context.Background(), plan, "run-done", nil)
	require.NoError(t, err)

	_, tracked := executor.RunStatus("run-done")
	assert.False(t, tracked, "finished runs must not pin tracker memory")

	// Status queries for evicted runs are served from the snapshot.
	snapshot, err := persist.RunRepository().RunByID(context.Background(), "run-done")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, snapshot.Status)
}

func TestExecutor_Execute_BusFailureDoesNotFailRun(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	reg := registry.NewRegistry(logger)

	for _, factory := range []protocol.PluginFactory{helloworld.NewFactory(), uppercase.NewFactory()} {
		reg.RegisterFactory(factory)

		plugin, err := reg.CreatePlugin(ctx, factory.ID(), nil)
		require.NoError(t, err)

		reg.Register(plugin)
	}

	bus := &mocks.MockEventBus{}
	bus.On("Subscribe", mock.Anything, mock.Anything).Return()
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker unavailable"))

	executor := workflow.NewExecutor(reg, bus, nil, logger)
	require.NoError(t, reg.InitializeAll(ctx, nil, bus))

	plan, err := workflow.BuildPlan(greetingWorkflow())
	require.NoError(t, err)

	result, err := executor.Execute(ctx, plan, "run-observed", nil)
	require.NoError(t, err, "an observer failure must never fail the run")

	assert.Equal(t, models.RunStatusCompleted, result.Status)
	assert.Equal(t, "HELLO WORLD", result.State["final_greeting"])
	bus.AssertCalled(t, "Publish", mock.Anything, "run-observed", mock.Anything)
}

func TestExecutor_Execute_GeneratesRunID(t *testing.T) {
	executor, _, _ := newTestHarness(t, nil)

	plan, err := workflow.BuildPlan(greetingWorkflow())
	require.NoError(t, err)

	result, err := executor.Execute(context.Background(), plan, "", nil)
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Contains(t, result.RunID, "run-")
}
