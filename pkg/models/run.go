package models

import "time"

// RunStatus is the lifecycle state of one workflow run.
type RunStatus string

const (
	RunStatusInitializing RunStatus = "initializing"
	RunStatusRunning      RunStatus = "running"
	RunStatusSuspended    RunStatus = "suspended" // waiting for external input
	RunStatusCompleted    RunStatus = "completed"
	RunStatusFailed       RunStatus = "failed"
	RunStatusCancelled    RunStatus = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}

// RunResult is the terminal outcome of one workflow run. FailedStep and
// ErrorMessage are populated only when Status is RunStatusFailed.
type RunResult struct {
	RunID        string         `json:"run_id"`
	WorkflowID   string         `json:"workflow_id"`
	Status       RunStatus      `json:"status"`
	FailedStep   string         `json:"failed_step,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	State        map[string]any `json:"state"`
	Duration     time.Duration  `json:"duration"`
}

// RunSnapshot is the persisted view of a run, written after every completed
// step and at every terminal transition so an external retry driver can
// re-invoke the run with the accumulated state bag.
type RunSnapshot struct {
	RunID      string         `json:"run_id"`
	WorkflowID string         `json:"workflow_id"`
	Status     RunStatus      `json:"status"`
	State      map[string]any `json:"state"`
	FailedStep string         `json:"failed_step,omitempty"`
	Error      string         `json:"error,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
