package models

// ExecutionContext is the view of workflow state handed to one plugin
// invocation. It is built fresh for every step from the run's state bag via
// the step's input mapping and discarded afterwards; mutating it inside a
// plugin has no effect on the run.
type ExecutionContext struct {
	ID         string         `json:"id"` // run identifier
	WorkflowID string         `json:"workflow_id"`
	StepUID    string         `json:"step_uid"`
	Inputs     map[string]any `json:"inputs,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}
