package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/stagehand-io/stagehand/pkg/persistence"
	"github.com/stagehand-io/stagehand/pkg/persistence/file"
	"github.com/stagehand-io/stagehand/pkg/persistence/postgresql"
	"github.com/stagehand-io/stagehand/pkg/persistence/redis"
)

// NewPersistence selects the storage backend from the URL scheme. Anything
// that is not postgres or redis is treated as a file path.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	case strings.HasPrefix(databaseURL, "redis://"):
		return redis.NewPersistence(ctx, logger, databaseURL)
	default:
		return file.NewPersistence(databaseURL), nil
	}
}
