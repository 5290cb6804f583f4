// Package persistence provides the storage abstraction for run snapshots and
// step attempt counters.
package persistence

import (
	"context"

	"github.com/stagehand-io/stagehand/pkg/models"
)

// RunRepository stores run snapshots so an external retry driver can
// re-invoke a run with the state bag accumulated by a previous attempt.
type RunRepository interface {
	SaveRun(ctx context.Context, snapshot *models.RunSnapshot) error
	RunByID(ctx context.Context, runID string) (*models.RunSnapshot, error)
}

// AttemptRepository keeps per-(run, step) attempt counters outside plugin
// instance memory, so they survive a process restart.
type AttemptRepository interface {
	// IncrementAttempt bumps the counter for (runID, stepUID) and returns the
	// new value; the first call for a pair returns 1.
	IncrementAttempt(ctx context.Context, runID, stepUID string) (int, error)
	Attempts(ctx context.Context, runID, stepUID string) (int, error)
}

type Persistence interface {
	RunRepository() RunRepository
	AttemptRepository() AttemptRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
