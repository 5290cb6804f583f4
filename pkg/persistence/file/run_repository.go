package file

import (
	"context"
	"encoding/json"
	"os"
	"path"

	"github.com/stagehand-io/stagehand/pkg/models"
	"github.com/stagehand-io/stagehand/pkg/persistence"
)

// RunRepository stores run snapshots as JSON documents.
type RunRepository struct {
	root string
}

func NewRunRepository(root string) *RunRepository {
	return &RunRepository{root: root}
}

func (rr *RunRepository) SaveRun(_ context.Context, snapshot *models.RunSnapshot) error {
	dir := path.Join(rr.root, "runs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return persistence.NewRunError("SaveRun", snapshot.RunID, err)
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return persistence.NewRunError("SaveRun", snapshot.RunID, err)
	}

	if err := os.WriteFile(path.Join(dir, snapshot.RunID+".json"), data, 0o644); err != nil {
		return persistence.NewRunError("SaveRun", snapshot.RunID, err)
	}

	return nil
}

func (rr *RunRepository) RunByID(_ context.Context, runID string) (*models.RunSnapshot, error) {
	data, err := os.ReadFile(path.Join(rr.root, "runs", runID+".json"))
	if os.IsNotExist(err) {
		return nil, persistence.NewRunError("RunByID", runID, persistence.ErrRunNotFound)
	}

	if err != nil {
		return nil, persistence.NewRunError("RunByID", runID, err)
	}

	var snapshot models.RunSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, persistence.NewRunError("RunByID", runID, err)
	}

	return &snapshot, nil
}
