package file

import (
	"context"
	"encoding/json"
	"os"
	"path"
	"sync"

	"github.com/stagehand-io/stagehand/pkg/persistence"
)

// AttemptRepository keeps one step_uid -> attempts table per run, persisted
// as JSON so counters survive a process restart. Increments within one
// process are serialized by a mutex; cross-process coordination is the
// caller's concern (use the postgres or redis backend for that).
type AttemptRepository struct {
	root string
	mu   sync.Mutex
}

func NewAttemptRepository(root string) *AttemptRepository {
	return &AttemptRepository{root: root}
}

func (ar *AttemptRepository) IncrementAttempt(_ context.Context, runID, stepUID string) (int, error) {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	counts, err := ar.load(runID)
	if err != nil {
		return 0, persistence.NewRunError("IncrementAttempt", runID, err)
	}

	counts[stepUID]++

	if err := ar.save(runID, counts); err != nil {
		return 0, persistence.NewRunError("IncrementAttempt", runID, err)
	}

	return counts[stepUID], nil
}

func (ar *AttemptRepository) Attempts(_ context.Context, runID, stepUID string) (int, error) {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	counts, err := ar.load(runID)
	if err != nil {
		return 0, persistence.NewRunError("Attempts", runID, err)
	}

	return counts[stepUID], nil
}

func (ar *AttemptRepository) load(runID string) (map[string]int, error) {
	data, err := os.ReadFile(ar.path(runID))
	if os.IsNotExist(err) {
		return map[string]int{}, nil
	}

	if err != nil {
		return nil, err
	}

	counts := map[string]int{}
	if err := json.Unmarshal(data, &counts); err != nil {
		return nil, err
	}

	return counts, nil
}

func (ar *AttemptRepository) save(runID string, counts map[string]int) error {
	if err := os.MkdirAll(path.Join(ar.root, "attempts"), 0o755); err != nil {
		return err
	}

	data, err := json.Marshal(counts)
	if err != nil {
		return err
	}

	return os.WriteFile(ar.path(runID), data, 0o644)
}

func (ar *AttemptRepository) path(runID string) string {
	return path.Join(ar.root, "attempts", runID+".json")
}
