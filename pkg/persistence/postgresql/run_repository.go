package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/stagehand-io/stagehand/pkg/models"
	"github.com/stagehand-io/stagehand/pkg/persistence"
)

// RunRepository stores run snapshots in the runs table.
type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (rr *RunRepository) SaveRun(ctx context.Context, snapshot *models.RunSnapshot) error {
	state, err := json.Marshal(snapshot.State)
	if err != nil {
		return persistence.NewRunError("SaveRun", snapshot.RunID, err)
	}

	_, err = rr.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, workflow_id, status, state, failed_step, error, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id) DO UPDATE SET
			workflow_id = EXCLUDED.workflow_id,
			status      = EXCLUDED.status,
			state       = EXCLUDED.state,
			failed_step = EXCLUDED.failed_step,
			error       = EXCLUDED.error,
			updated_at  = EXCLUDED.updated_at`,
		snapshot.RunID, snapshot.WorkflowID, snapshot.Status, state,
		snapshot.FailedStep, snapshot.Error, snapshot.UpdatedAt,
	)
	if err != nil {
		return persistence.NewRunError("SaveRun", snapshot.RunID, err)
	}

	return nil
}

func (rr *RunRepository) RunByID(ctx context.Context, runID string) (*models.RunSnapshot, error) {
	var (
		snapshot models.RunSnapshot
		state    []byte
	)

	row := rr.db.QueryRowContext(ctx, `
		SELECT run_id, workflow_id, status, state, failed_step, error, updated_at
		FROM runs WHERE run_id = $1`, runID)

	err := row.Scan(&snapshot.RunID, &snapshot.WorkflowID, &snapshot.Status,
		&state, &snapshot.FailedStep, &snapshot.Error, &snapshot.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewRunError("RunByID", runID, persistence.ErrRunNotFound)
	}

	if err != nil {
		return nil, persistence.NewRunError("RunByID", runID, err)
	}

	if err := json.Unmarshal(state, &snapshot.State); err != nil {
		return nil, persistence.NewRunError("RunByID", runID, err)
	}

	return &snapshot, nil
}
