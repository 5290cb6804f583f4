package mocks

import (
	"context"

	"github.com/stagehand-io/stagehand/pkg/models"
	"github.com/stagehand-io/stagehand/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockPersistence is a mock implementation of the persistence.Persistence
// interface. It serves its own repository interfaces.
type MockPersistence struct {
	mock.Mock
}

func (m *MockPersistence) RunRepository() persistence.RunRepository {
	return m
}

func (m *MockPersistence) AttemptRepository() persistence.AttemptRepository {
	return m
}

func (m *MockPersistence) SaveRun(ctx context.Context, snapshot *models.RunSnapshot) error {
	args := m.Called(ctx, snapshot)

	return args.Error(0)
}

func (m *MockPersistence) RunByID(ctx context.Context, runID string) (*models.RunSnapshot, error) {
	args := m.Called(ctx, runID)

	snapshot, _ := args.Get(0).(*models.RunSnapshot)

	return snapshot, args.Error(1)
}

func (m *MockPersistence) IncrementAttempt(ctx context.Context, runID, stepUID string) (int, error) {
	args := m.Called(ctx, runID, stepUID)

	return args.Int(0), args.Error(1)
}

func (m *MockPersistence) Attempts(ctx context.Context, runID, stepUID string) (int, error) {
	args := m.Called(ctx, runID, stepUID)

	return args.Int(0), args.Error(1)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
