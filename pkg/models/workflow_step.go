package models

// WorkflowStep is one declared use of a plugin within a workflow.
//
// InputMapping projects workflow state keys into the plugin's input keys
// (workflow key -> plugin key); OutputMapping merges the plugin's output back
// into workflow state (plugin key -> workflow key). DependsOn is used only
// for ordering and must reference step UIDs within the same workflow.
type WorkflowStep struct {
	UID           string            `json:"uid"                      yaml:"uid"                      validate:"required,lowercase"`
	Name          string            `json:"name,omitempty"           yaml:"name,omitempty"`
	PluginID      string            `json:"plugin_id"                yaml:"plugin_id"                validate:"required"`
	DependsOn     []string          `json:"depends_on,omitempty"     yaml:"depends_on,omitempty"`
	InputMapping  map[string]string `json:"input_mapping,omitempty"  yaml:"input_mapping,omitempty"`
	OutputMapping map[string]string `json:"output_mapping,omitempty" yaml:"output_mapping,omitempty"`
}
