// Package mocks provides testify mocks shared across package tests.
package mocks

import (
	"context"

	"github.com/stagehand-io/stagehand/pkg/eventbus"
	"github.com/stagehand-io/stagehand/pkg/events"
	"github.com/stretchr/testify/mock"
)

// MockEventBus is a mock implementation of the eventbus.Bus interface.
type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, key string, event eventbus.Event) error {
	args := m.Called(ctx, key, event)

	return args.Error(0)
}

func (m *MockEventBus) Subscribe(eventType events.EventType, handler eventbus.Handler) {
	m.Called(eventType, handler)
}

func (m *MockEventBus) Close() error {
	args := m.Called()

	return args.Error(0)
}
