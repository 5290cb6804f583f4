package workflow_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stagehand-io/stagehand/pkg/models"
	"github.com/stagehand-io/stagehand/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func step(uid string, deps ...string) *models.WorkflowStep {
	return &models.WorkflowStep{
		UID:       uid,
		Name:      uid,
		PluginID:  "hello_world",
		DependsOn: deps,
	}
}

func planOrder(t *testing.T, plan *workflow.Plan) map[string]int {
	t.Helper()

	position := make(map[string]int, len(plan.Steps))
	for i, s := range plan.Steps {
		position[s.UID] = i
	}

	return position
}

func TestBuildPlan_OrderRespectsDependencies(t *testing.T) {
	tests := []struct {
		name  string
		steps []*models.WorkflowStep
	}{
		{
			name:  "linear chain",
			steps: []*models.WorkflowStep{step("a"), step("b", "a"), step("c", "b")},
		},
		{
			name:  "declared out of order",
			steps: []*models.WorkflowStep{step("c", "b"), step("b", "a"), step("a")},
		},
		{
			name: "diamond",
			steps: []*models.WorkflowStep{
				step("top"),
				step("left", "top"),
				step("right", "top"),
				step("bottom", "left", "right"),
			},
		},
		{
			name:  "independent steps",
			steps: []*models.WorkflowStep{step("x"), step("y"), step("z")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf := &models.Workflow{ID: "wf-test", Name: "test", Steps: tt.steps}

			plan, err := workflow.BuildPlan(wf)
			require.NoError(t, err)
			require.Len(t, plan.Steps, len(tt.steps))

			position := planOrder(t, plan)
			for _, s := range tt.steps {
				for _, dep := range s.DependsOn {
					assert.Less(t, position[dep], position[s.UID],
						"dependency %q must precede %q", dep, s.UID)
				}
			}
		})
	}
}

func TestBuildPlan_IndependentStepsKeepDeclarationOrder(t *testing.T) {
	wf := &models.Workflow{
		ID:    "wf-test",
		Name:  "test",
		Steps: []*models.WorkflowStep{step("zeta"), step("alpha"), step("mid")},
	}

	plan, err := workflow.BuildPlan(wf)
	require.NoError(t, err)

	uids := make([]string, 0, len(plan.Steps))
	for _, s := range plan.Steps {
		uids = append(uids, s.UID)
	}

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, uids)
}

func TestBuildPlan_CycleDetected(t *testing.T) {
	tests := []struct {
		name  string
		steps []*models.WorkflowStep
	}{
		{
			name:  "self cycle",
			steps: []*models.WorkflowStep{step("a", "a")},
		},
		{
			name:  "two step cycle",
			steps: []*models.WorkflowStep{step("a", "b"), step("b", "a")},
		},
		{
			name: "cycle behind a valid prefix",
			steps: []*models.WorkflowStep{
				step("root"),
				step("a", "root", "c"),
				step("b", "a"),
				step("c", "b"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf := &models.Workflow{ID: "wf-test", Name: "test", Steps: tt.steps}

			_, err := workflow.BuildPlan(wf)
			require.Error(t, err)
			assert.ErrorIs(t, err, workflow.ErrCycleDetected)
		})
	}
}

func TestBuildPlan_CycleErrorNamesThePath(t *testing.T) {
	wf := &models.Workflow{
		ID:    "wf-test",
		Name:  "test",
		Steps: []*models.WorkflowStep{step("a", "b"), step("b", "a")},
	}

	_, err := workflow.BuildPlan(wf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a -> b -> a")
}

func TestBuildPlan_UnknownDependency(t *testing.T) {
	wf := &models.Workflow{
		ID:    "wf-test",
		Name:  "test",
		Steps: []*models.WorkflowStep{step("a"), step("b", "ghost")},
	}

	_, err := workflow.BuildPlan(wf)
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrUnknownDependency)
	assert.Contains(t, err.Error(), `"b"`)
	assert.Contains(t, err.Error(), `"ghost"`)
}

func TestBuildPlan_DuplicateStepUID(t *testing.T) {
	wf := &models.Workflow{
		ID:    "wf-test",
		Name:  "test",
		Steps: []*models.WorkflowStep{step("a"), step("a")},
	}

	_, err := workflow.BuildPlan(wf)
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrDuplicateStepUID)
}

// TestBuildPlan_RandomDAGs generates random acyclic workflows (edges only
// point from later declarations to earlier ones, so they cannot cycle) and
// checks the plan honors every dependency.
func TestBuildPlan_RandomDAGs(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := range 100 {
		stepCount := 2 + rng.Intn(15)
		steps := make([]*models.WorkflowStep, 0, stepCount)

		for i := range stepCount {
			uid := fmt.Sprintf("step_%d", i)

			var deps []string

			for j := range i {
				if rng.Intn(3) == 0 {
					deps = append(deps, fmt.Sprintf("step_%d", j))
				}
			}

			steps = append(steps, step(uid, deps...))
		}

		rng.Shuffle(len(steps), func(i, j int) {
			steps[i], steps[j] = steps[j], steps[i]
		})

		wf := &models.Workflow{ID: fmt.Sprintf("wf-random-%d", trial), Name: "random", Steps: steps}

		plan, err := workflow.BuildPlan(wf)
		require.NoError(t, err, "trial %d", trial)
		require.Len(t, plan.Steps, stepCount, "trial %d", trial)

		position := planOrder(t, plan)
		for _, s := range steps {
			for _, dep := range s.DependsOn {
				assert.Less(t, position[dep], position[s.UID],
					"trial %d: dependency %q must precede %q", trial, dep, s.UID)
			}
		}
	}
}
