// Package file provides file-based persistence for run snapshots and attempt
// counters.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/stagehand-io/stagehand/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file
// system: one JSON document per run under runs/, one attempt table per run
// under attempts/.
type Persistence struct {
	root        string
	runRepo     *RunRepository
	attemptRepo *AttemptRepository
}

// NewPersistence creates a new instance of Persistence rooted at the given
// directory. A "file://" prefix is accepted and stripped.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:        cleanRoot,
		runRepo:     NewRunRepository(cleanRoot),
		attemptRepo: NewAttemptRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is
// nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists, creating it when missing.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	return os.MkdirAll(fp.root, 0o755)
}

func (fp *Persistence) RunRepository() persistence.RunRepository {
	return fp.runRepo
}

func (fp *Persistence) AttemptRepository() persistence.AttemptRepository {
	return fp.attemptRepo
}
