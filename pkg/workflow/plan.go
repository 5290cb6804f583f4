// Package workflow compiles step declarations into ordered plans and drives
// their execution.
package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stagehand-io/stagehand/pkg/models"
)

var (
	ErrCycleDetected     = errors.New("dependency cycle detected")
	ErrUnknownDependency = errors.New("unknown dependency")
	ErrDuplicateStepUID  = errors.New("duplicate step uid")
)

// Plan is a total order over a workflow's steps consistent with every step's
// dependency set. It is built once per workflow definition and read-only
// thereafter.
type Plan struct {
	WorkflowID string
	Steps      []*models.WorkflowStep
}

// BuildPlan resolves step dependencies into a single execution order using a
// memoized depth-first traversal: a step's dependencies are appended before
// the step itself, and steps with no ordering constraint between them keep
// their declaration order. Unresolvable dependency names and cycles are
// definition errors raised here, never at run time.
func BuildPlan(wf *models.Workflow) (*Plan, error) {
	byUID := make(map[string]*models.WorkflowStep, len(wf.Steps))

	for _, step := range wf.Steps {
		if _, exists := byUID[step.UID]; exists {
			return nil, fmt.Errorf("workflow %q: step %q: %w", wf.ID, step.UID, ErrDuplicateStepUID)
		}

		byUID[step.UID] = step
	}

	ordered := make([]*models.WorkflowStep, 0, len(wf.Steps))
	visited := make(map[string]bool, len(wf.Steps)) // appended to the order
	onPath := make(map[string]bool, len(wf.Steps))  // on the current recursion path

	var path []string

	var visit func(uid string) error
	visit = func(uid string) error {
		if visited[uid] {
			return nil
		}

		if onPath[uid] {
			cycleStart := 0

			for i, p := range path {
				if p == uid {
					cycleStart = i

					break
				}
			}

			cycle := append(append([]string{}, path[cycleStart:]...), uid)

			return fmt.Errorf("workflow %q: %w: %s", wf.ID, ErrCycleDetected, strings.Join(cycle, " -> "))
		}

		step := byUID[uid]

		onPath[uid] = true
		path = append(path, uid)

		for _, dep := range step.DependsOn {
			if _, ok := byUID[dep]; !ok {
				return fmt.Errorf("workflow %q: step %q depends on %q: %w", wf.ID, uid, dep, ErrUnknownDependency)
			}

			if err := visit(dep); err != nil {
				return err
			}
		}

		path = path[:len(path)-1]
		onPath[uid] = false
		visited[uid] = true
		ordered = append(ordered, step)

		return nil
	}

	for _, step := range wf.Steps {
		if err := visit(step.UID); err != nil {
			return nil, err
		}
	}

	return &Plan{WorkflowID: wf.ID, Steps: ordered}, nil
}
