// Package events defines event types and structures for run lifecycle
// notifications and the pause/resume handshake.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Relay topics.
const Topic = "stagehand.events"            // outbound run lifecycle events
const CommandTopic = "stagehand.commands"   // inbound controller commands

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Run lifecycle events.
	RunStartedEvent   EventType = "run.started"
	RunCompletedEvent EventType = "run.completed"
	RunFailedEvent    EventType = "run.failed"
	RunCancelledEvent EventType = "run.cancelled"

	// Step lifecycle events.
	StepStartedEvent  EventType = "step.started"
	StepFinishedEvent EventType = "step.finished"
	StepFailedEvent   EventType = "step.failed"
	StepSkippedEvent  EventType = "step.skipped"

	// Human-in-the-loop handshake.
	WaitingForInputEvent EventType = "waiting_for_input"
	InputReceivedEvent   EventType = "input_received"

	// External abandonment request for an in-flight run.
	CancelRequestedEvent EventType = "run.cancel_requested"
)

type BaseEvent struct {
	ID          string         `json:"id"`
	Timestamp   time.Time      `json:"timestamp"`
	WorkflowID  string         `json:"workflow_id,omitempty"`
	ExecutionID string         `json:"execution_id"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(workflowID, executionID string) BaseEvent {
	return BaseEvent{
		ID:          "evt-" + uuid.New().String()[:8],
		Timestamp:   time.Now().UTC(),
		WorkflowID:  workflowID,
		ExecutionID: executionID,
	}
}

type RunStarted struct {
	BaseEvent

	StepCount int `json:"step_count"`
}

func (RunStarted) GetType() EventType { return RunStartedEvent }

type RunCompleted struct {
	BaseEvent

	Result   map[string]any `json:"result,omitempty"`
	Duration time.Duration  `json:"duration"`
}

func (RunCompleted) GetType() EventType { return RunCompletedEvent }

type RunFailed struct {
	BaseEvent

	StepUID  string        `json:"step_uid,omitempty"`
	Error    string        `json:"error"`
	Duration time.Duration `json:"duration"`
}

func (RunFailed) GetType() EventType { return RunFailedEvent }

type RunCancelled struct {
	BaseEvent

	Reason string `json:"reason,omitempty"`
}

func (RunCancelled) GetType() EventType { return RunCancelledEvent }

type StepStarted struct {
	BaseEvent

	StepUID  string `json:"step_uid"`
	PluginID string `json:"plugin_id"`
}

func (StepStarted) GetType() EventType { return StepStartedEvent }

type StepFinished struct {
	BaseEvent

	StepUID    string         `json:"step_uid"`
	OutputData map[string]any `json:"output_data,omitempty"`
	Duration   time.Duration  `json:"duration"`
}

func (StepFinished) GetType() EventType { return StepFinishedEvent }

type StepFailed struct {
	BaseEvent

	StepUID  string        `json:"step_uid"`
	Error    string        `json:"error"`
	Duration time.Duration `json:"duration"`
}

func (StepFailed) GetType() EventType { return StepFailedEvent }

// StepSkipped is published when a re-invoked run finds a step's mapped
// outputs already present in the supplied state bag.
type StepSkipped struct {
	BaseEvent

	StepUID string `json:"step_uid"`
}

func (StepSkipped) GetType() EventType { return StepSkippedEvent }

// WaitingForInput is published by a pausing plugin right before it suspends
// on its run-scoped wait channel.
type WaitingForInput struct {
	BaseEvent

	StepUID string `json:"step_uid"`
	Prompt  string `json:"prompt"`
}

func (WaitingForInput) GetType() EventType { return WaitingForInputEvent }

// InputReceived releases a suspended plugin. Abandoned marks the distinguished
// "give up" payload: the plugin returns a failure result instead of the value.
type InputReceived struct {
	BaseEvent

	Value     any  `json:"value,omitempty"`
	Abandoned bool `json:"abandoned,omitempty"`
}

func (InputReceived) GetType() EventType { return InputReceivedEvent }

type CancelRequested struct {
	BaseEvent

	Reason string `json:"reason,omitempty"`
}

func (CancelRequested) GetType() EventType { return CancelRequestedEvent }
