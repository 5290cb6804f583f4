package postgresql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/stagehand-io/stagehand/pkg/persistence"
)

// AttemptRepository stores attempt counters in the step_attempts table. The
// increment is a single upsert, so concurrent processes sharing the database
// observe a consistent counter.
type AttemptRepository struct {
	db *sql.DB
}

func NewAttemptRepository(db *sql.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

func (ar *AttemptRepository) IncrementAttempt(ctx context.Context, runID, stepUID string) (int, error) {
	var attempts int

	row := ar.db.QueryRowContext(ctx, `
		INSERT INTO step_attempts (run_id, step_uid, attempts)
		VALUES ($1, $2, 1)
		ON CONFLICT (run_id, step_uid)
		DO UPDATE SET attempts = step_attempts.attempts + 1
		RETURNING attempts`, runID, stepUID)

	if err := row.Scan(&attempts); err != nil {
		return 0, persistence.NewRunError("IncrementAttempt", runID, err)
	}

	return attempts, nil
}

func (ar *AttemptRepository) Attempts(ctx context.Context, runID, stepUID string) (int, error) {
	var attempts sql.NullInt64

	row := ar.db.QueryRowContext(ctx, `
		SELECT attempts FROM step_attempts WHERE run_id = $1 AND step_uid = $2`, runID, stepUID)

	err := row.Scan(&attempts)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, persistence.NewRunError("Attempts", runID, err)
	}

	return int(attempts.Int64), nil
}
