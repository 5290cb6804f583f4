package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stagehand-io/stagehand/pkg/eventbus"
	"github.com/stagehand-io/stagehand/pkg/events"
	"github.com/stagehand-io/stagehand/pkg/models"
	"github.com/stagehand-io/stagehand/pkg/otelhelper"
	"github.com/stagehand-io/stagehand/pkg/persistence"
	"github.com/stagehand-io/stagehand/pkg/protocol"
	"github.com/stagehand-io/stagehand/pkg/registry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type runState struct {
	status models.RunStatus
	cancel context.CancelFunc
}

// Executor walks a Plan step by step: it projects the state bag into an
// ExecutionContext, invokes the step's plugin from the registry and, on
// success, merges the result back into the bag. It is the only component
// that mutates the bag, and it only does so between plugin calls.
//
// One Executor serves many concurrent runs; each run owns its bag and
// ExecutionContext instances exclusively. Steps within one run never execute
// concurrently.
type Executor struct {
	registry    *registry.Registry
	bus         eventbus.Bus
	persistence persistence.Persistence // may be nil: snapshots are then skipped
	logger      *slog.Logger
	tracer      trace.Tracer

	mu   sync.RWMutex
	runs map[string]*runState
}

func NewExecutor(reg *registry.Registry, bus eventbus.Bus, persist persistence.Persistence, logger *slog.Logger) *Executor {
	e := &Executor{
		registry:    reg,
		bus:         bus,
		persistence: persist,
		logger:      logger.With("module", "workflow_executor"),
		tracer:      otel.Tracer("stagehand.workflow"),
		runs:        make(map[string]*runState),
	}

	bus.Subscribe(events.WaitingForInputEvent, e.onWaitingForInput)
	bus.Subscribe(events.InputReceivedEvent, e.onInputReceived)
	bus.Subscribe(events.CancelRequestedEvent, e.onCancelRequested)

	return e
}

// Execute runs plan against the initial state bag. The returned error is
// non-nil only for definition errors and fatal plugin errors; a step
// reporting Success=false terminates the run with RunStatusFailed and a nil
// error.
//
// Re-invoking with the same runID and a bag reflecting previously completed
// steps' outputs re-executes from the first incomplete step: a step whose
// mapped output keys are all present in the bag is skipped.
func (e *Executor) Execute(ctx context.Context, plan *Plan, runID string, initial map[string]any) (*models.RunResult, error) {
	if runID == "" {
		runID = "run-" + uuid.New().String()[:8]
	}

	started := time.Now()

	bag := make(map[string]any, len(initial))
	maps.Copy(bag, initial)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.trackRun(runID, cancel)

	logger := e.logger.With("workflow_id", plan.WorkflowID, "run_id", runID)
	logger.InfoContext(runCtx, "Starting workflow run", "steps", len(plan.Steps))

	runCtx, runSpan := otelhelper.StartSpan(runCtx, e.tracer, "workflow.run",
		attribute.String(otelhelper.WorkflowIDKey, plan.WorkflowID),
		attribute.String(otelhelper.RunIDKey, runID),
	)
	defer runSpan.End()

	e.publish(runCtx, runID, &events.RunStarted{
		BaseEvent: events.NewBaseEvent(plan.WorkflowID, runID),
		StepCount: len(plan.Steps),
	})
	e.setRunStatus(runID, models.RunStatusRunning)

	for _, step := range plan.Steps {
		if runCtx.Err() != nil {
			return e.finish(ctx, plan, runID, bag, started, models.RunStatusCancelled, "", runCtx.Err().Error(), logger), nil
		}

		if stepSatisfied(step, bag) {
			logger.InfoContext(runCtx, "Step outputs already present, skipping", "step_uid", step.UID)
			e.publish(runCtx, runID, &events.StepSkipped{
				BaseEvent: events.NewBaseEvent(plan.WorkflowID, runID),
				StepUID:   step.UID,
			})

			continue
		}

		result, err := e.executeStep(runCtx, plan, runID, step, bag, logger)

		// A run abandoned mid-step terminates as cancelled, not failed.
		if runCtx.Err() != nil {
			return e.finish(ctx, plan, runID, bag, started, models.RunStatusCancelled, "", runCtx.Err().Error(), logger), nil
		}

		if err != nil {
			otelhelper.SetError(runSpan, err)

			return e.finish(ctx, plan, runID, bag, started, models.RunStatusFailed, step.UID, err.Error(), logger), err
		}

		if !result.Success {
			return e.finish(ctx, plan, runID, bag, started, models.RunStatusFailed, step.UID, result.ErrorMessage, logger), nil
		}

		e.snapshotRun(runCtx, plan.WorkflowID, runID, models.RunStatusRunning, bag, "", "")
	}

	return e.finish(ctx, plan, runID, bag, started, models.RunStatusCompleted, "", "", logger), nil
}

func (e *Executor) executeStep(ctx context.Context, plan *Plan, runID string, step *models.WorkflowStep, bag map[string]any, logger *slog.Logger) (*models.PluginResult, error) {
	stepStarted := time.Now()
	logger = logger.With("step_uid", step.UID, "plugin_id", step.PluginID)

	plugin, err := e.registry.Get(step.PluginID)
	if err != nil {
		return nil, fmt.Errorf("step %q: %w", step.UID, err)
	}

	execCtx := models.ExecutionContext{
		ID:         runID,
		WorkflowID: plan.WorkflowID,
		StepUID:    step.UID,
		Inputs:     projectInputs(step, bag),
	}

	if preflight, ok := plugin.(protocol.InputValidator); ok {
		if vr := preflight.ValidateInput(execCtx.Inputs); vr != nil && !vr.Valid {
			logger.WarnContext(ctx, "Step input rejected by pre-flight check", "errors", vr.Errors)

			return models.NewFailureResult("input validation failed: " + strings.Join(vr.Errors, "; ")), nil
		}
	}

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.step",
		attribute.String(otelhelper.StepUIDKey, step.UID),
		attribute.String(otelhelper.PluginIDKey, step.PluginID),
	)
	defer span.End()

	logger.InfoContext(ctx, "Executing step")
	e.publish(ctx, runID, &events.StepStarted{
		BaseEvent: events.NewBaseEvent(plan.WorkflowID, runID),
		StepUID:   step.UID,
		PluginID:  step.PluginID,
	})

	result, err := plugin.Execute(ctx, execCtx)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("step %q: plugin %q: %w", step.UID, step.PluginID, err)
	}

	if result == nil {
		err := fmt.Errorf("step %q: plugin %q returned no result", step.UID, step.PluginID)
		otelhelper.SetError(span, err)

		return nil, err
	}

	if !result.Success {
		otelhelper.SetError(span, errors.New(result.ErrorMessage))
		logger.WarnContext(ctx, "Step failed", "error", result.ErrorMessage)
		e.publish(ctx, runID, &events.StepFailed{
			BaseEvent: events.NewBaseEvent(plan.WorkflowID, runID),
			StepUID:   step.UID,
			Error:     result.ErrorMessage,
			Duration:  time.Since(stepStarted),
		})

		return result, nil
	}

	mergeOutputs(step, result.Data, bag)

	logger.InfoContext(ctx, "Step finished", "duration", time.Since(stepStarted))
	e.publish(ctx, runID, &events.StepFinished{
		BaseEvent:  events.NewBaseEvent(plan.WorkflowID, runID),
		StepUID:    step.UID,
		OutputData: result.Data,
		Duration:   time.Since(stepStarted),
	})

	return result, nil
}

func (e *Executor) finish(ctx context.Context, plan *Plan, runID string, bag map[string]any, started time.Time, status models.RunStatus, failedStep, message string, logger *slog.Logger) *models.RunResult {
	// Terminal bookkeeping must survive the run context being cancelled.
	ctx = context.WithoutCancel(ctx)

	e.setRunStatus(runID, status)

	duration := time.Since(started)
	base := events.NewBaseEvent(plan.WorkflowID, runID)

	result := &models.RunResult{
		RunID:      runID,
		WorkflowID: plan.WorkflowID,
		Status:     status,
		State:      bag,
		Duration:   duration,
	}

	switch status {
	case models.RunStatusCompleted:
		e.publish(ctx, runID, &events.RunCompleted{BaseEvent: base, Result: bag, Duration: duration})
	case models.RunStatusFailed:
		result.FailedStep = failedStep
		result.ErrorMessage = message
		e.publish(ctx, runID, &events.RunFailed{BaseEvent: base, StepUID: failedStep, Error: message, Duration: duration})
	case models.RunStatusCancelled:
		e.publish(ctx, runID, &events.RunCancelled{BaseEvent: base, Reason: message})
	}

	e.snapshotRun(ctx, plan.WorkflowID, runID, status, bag, result.FailedStep, result.ErrorMessage)
	e.forgetRun(runID)
	logger.InfoContext(ctx, "Run finished", "status", status, "duration", duration)

	return result
}

func (e *Executor) snapshotRun(ctx context.Context, workflowID, runID string, status models.RunStatus, bag map[string]any, failedStep, message string) {
	if e.persistence == nil {
		return
	}

	snapshot := &models.RunSnapshot{
		RunID:      runID,
		WorkflowID: workflowID,
		Status:     status,
		State:      maps.Clone(bag),
		FailedStep: failedStep,
		Error:      message,
		UpdatedAt:  time.Now().UTC(),
	}

	if err := e.persistence.RunRepository().SaveRun(ctx, snapshot); err != nil {
		e.logger.ErrorContext(ctx, "Failed to persist run snapshot", "run_id", runID, "error", err)
	}
}

// publish delivers event on the bus and surfaces subscriber errors in the log
// instead of failing the run over an observer problem.
func (e *Executor) publish(ctx context.Context, key string, event eventbus.Event) {
	if err := e.bus.Publish(ctx, key, event); err != nil {
		e.logger.ErrorContext(ctx, "Event delivery failed", "event_type", event.GetType(), "error", err)
	}
}

// RunStatus reports the current status of an in-flight run. Terminal runs
// are evicted once their final snapshot is written; queries for them are
// answered from persistence.
func (e *Executor) RunStatus(runID string) (models.RunStatus, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	state, ok := e.runs[runID]
	if !ok {
		return "", false
	}

	return state.status, true
}

// CancelRun requests abandonment of an in-flight run: the run aborts at its
// next suspension point and pending wait primitives observe the cancelled
// context.
func (e *Executor) CancelRun(runID string) bool {
	e.mu.RLock()
	state, ok := e.runs[runID]
	e.mu.RUnlock()

	if !ok || state.status.Terminal() {
		return false
	}

	state.cancel()

	return true
}

func (e *Executor) trackRun(runID string, cancel context.CancelFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.runs[runID] = &runState{status: models.RunStatusInitializing, cancel: cancel}
}

// forgetRun drops a finished run from the tracking map so a long-lived
// process does not accumulate an entry per run.
func (e *Executor) forgetRun(runID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.runs, runID)
}

func (e *Executor) setRunStatus(runID string, status models.RunStatus) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.runs[runID]
	if !ok || state.status.Terminal() {
		return
	}

	state.status = status
}

func (e *Executor) onWaitingForInput(_ context.Context, event eventbus.Event) error {
	if ev, ok := event.(*events.WaitingForInput); ok {
		e.setRunStatus(ev.ExecutionID, models.RunStatusSuspended)
	}

	return nil
}

func (e *Executor) onInputReceived(_ context.Context, event eventbus.Event) error {
	ev, ok := event.(*events.InputReceived)
	if !ok {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if state, tracked := e.runs[ev.ExecutionID]; tracked && state.status == models.RunStatusSuspended {
		state.status = models.RunStatusRunning
	}

	return nil
}

func (e *Executor) onCancelRequested(_ context.Context, event eventbus.Event) error {
	if ev, ok := event.(*events.CancelRequested); ok {
		e.CancelRun(ev.ExecutionID)
	}

	return nil
}

// stepSatisfied reports whether every workflow key the step would write is
// already present in the bag, which marks the step as completed by a previous
// invocation of the same run.
func stepSatisfied(step *models.WorkflowStep, bag map[string]any) bool {
	if len(step.OutputMapping) == 0 {
		return false
	}

	for _, workflowKey := range step.OutputMapping {
		if _, ok := bag[workflowKey]; !ok {
			return false
		}
	}

	return true
}

// projectInputs copies the mapped slice of the bag into plugin input keys.
// Missing workflow keys are passed through as absent; the plugin decides
// whether that is fatal.
func projectInputs(step *models.WorkflowStep, bag map[string]any) map[string]any {
	inputs := make(map[string]any, len(step.InputMapping))

	for workflowKey, pluginKey := range step.InputMapping {
		if value, ok := bag[workflowKey]; ok {
			inputs[pluginKey] = value
		}
	}

	return inputs
}

func mergeOutputs(step *models.WorkflowStep, data, bag map[string]any) {
	for pluginKey, workflowKey := range step.OutputMapping {
		if value, ok := data[pluginKey]; ok {
			bag[workflowKey] = value
		}
	}
}
