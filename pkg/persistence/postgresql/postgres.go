// Package postgresql provides PostgreSQL persistence for run snapshots and
// attempt counters.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	// PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/stagehand-io/stagehand/pkg/persistence"
	"github.com/stagehand-io/stagehand/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db          *sql.DB
	logger      *slog.Logger
	runRepo     *RunRepository
	attemptRepo *AttemptRepository
}

// NewPersistence connects, runs migrations and returns a ready persistence
// layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	if err := database.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())
	if err := migrationManager.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:          database,
		logger:      logger,
		runRepo:     NewRunRepository(database),
		attemptRepo: NewAttemptRepository(database),
	}, nil
}

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS runs (
				run_id      TEXT PRIMARY KEY,
				workflow_id TEXT NOT NULL,
				status      TEXT NOT NULL,
				state       JSONB NOT NULL DEFAULT '{}',
				failed_step TEXT NOT NULL DEFAULT '',
				error       TEXT NOT NULL DEFAULT '',
				updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS step_attempts (
				run_id   TEXT NOT NULL,
				step_uid TEXT NOT NULL,
				attempts INTEGER NOT NULL DEFAULT 0,
				PRIMARY KEY (run_id, step_uid)
			);
		`,
	}
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) RunRepository() persistence.RunRepository {
	return p.runRepo
}

func (p *Persistence) AttemptRepository() persistence.AttemptRepository {
	return p.attemptRepo
}
