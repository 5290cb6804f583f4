// Package redis provides Redis persistence for run snapshots and attempt
// counters. Attempt counters map directly onto INCR, which makes this backend
// a natural fit for retry drivers spanning several processes.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stagehand-io/stagehand/pkg/models"
	"github.com/stagehand-io/stagehand/pkg/persistence"
)

const (
	runKeyPrefix     = "stagehand:runs:"
	attemptKeyPrefix = "stagehand:attempts:"
)

type Persistence struct {
	client *goredis.Client
	logger *slog.Logger
}

func NewPersistence(ctx context.Context, logger *slog.Logger, redisURL string) (*Persistence, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Persistence{client: client, logger: logger}, nil
}

func (p *Persistence) Close(_ context.Context) error {
	return p.client.Close()
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func (p *Persistence) RunRepository() persistence.RunRepository {
	return p
}

func (p *Persistence) AttemptRepository() persistence.AttemptRepository {
	return p
}

func (p *Persistence) SaveRun(ctx context.Context, snapshot *models.RunSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return persistence.NewRunError("SaveRun", snapshot.RunID, err)
	}

	if err := p.client.Set(ctx, runKeyPrefix+snapshot.RunID, payload, 0).Err(); err != nil {
		return persistence.NewRunError("SaveRun", snapshot.RunID, err)
	}

	return nil
}

func (p *Persistence) RunByID(ctx context.Context, runID string) (*models.RunSnapshot, error) {
	payload, err := p.client.Get(ctx, runKeyPrefix+runID).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, persistence.NewRunError("RunByID", runID, persistence.ErrRunNotFound)
	}

	if err != nil {
		return nil, persistence.NewRunError("RunByID", runID, err)
	}

	var snapshot models.RunSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, persistence.NewRunError("RunByID", runID, err)
	}

	return &snapshot, nil
}

func (p *Persistence) IncrementAttempt(ctx context.Context, runID, stepUID string) (int, error) {
	attempts, err := p.client.Incr(ctx, attemptKey(runID, stepUID)).Result()
	if err != nil {
		return 0, persistence.NewRunError("IncrementAttempt", runID, err)
	}

	return int(attempts), nil
}

func (p *Persistence) Attempts(ctx context.Context, runID, stepUID string) (int, error) {
	attempts, err := p.client.Get(ctx, attemptKey(runID, stepUID)).Int()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}

	if err != nil {
		return 0, persistence.NewRunError("Attempts", runID, err)
	}

	return attempts, nil
}

func attemptKey(runID, stepUID string) string {
	return attemptKeyPrefix + runID + ":" + stepUID
}
