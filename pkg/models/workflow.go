// Package models defines the core domain models for plugin-based workflow orchestration.
package models

// Workflow is a declarative description of one pipeline: an ordered list of
// steps, each naming a plugin, its dependencies and its state-key mappings.
// Workflows are immutable once defined; ordering is resolved by the plan
// builder, not by the declaration itself.
type Workflow struct {
	ID          string          `json:"id"                   yaml:"id"                   validate:"required"`
	Name        string          `json:"name"                 yaml:"name"                 validate:"required,min=3"`
	Description string          `json:"description"          yaml:"description"`
	Steps       []*WorkflowStep `json:"steps"                yaml:"steps"                validate:"required,min=1,dive"`
	Variables   map[string]any  `json:"variables,omitempty"  yaml:"variables,omitempty"`
	Metadata    map[string]any  `json:"metadata,omitempty"   yaml:"metadata,omitempty"`
}
