package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/stagehand-io/stagehand/pkg/models"
	"gopkg.in/yaml.v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadWorkflowFile reads a workflow definition from a JSON or YAML file,
// picked by extension, and validates it.
func LoadWorkflowFile(path string) (*models.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file %s: %w", path, err)
	}

	var wf models.Workflow

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &wf)
	default:
		err = json.Unmarshal(data, &wf)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to parse workflow file %s: %w", path, err)
	}

	if err := ValidateWorkflow(&wf); err != nil {
		return nil, fmt.Errorf("invalid workflow definition %s: %w", path, err)
	}

	return &wf, nil
}

// ValidateWorkflow checks the declaration against the model's validation tags.
// Ordering problems (cycles, unknown dependencies) are reported by BuildPlan,
// not here.
func ValidateWorkflow(wf *models.Workflow) error {
	return validate.Struct(wf)
}
