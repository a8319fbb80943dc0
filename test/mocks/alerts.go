package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/cyber-patrol/internal/alerts"
	"github.com/stretchr/testify/mock"
)

// MockAlertRepository is a mock implementation of alerts.RepositoryInterface
type MockAlertRepository struct {
	mock.Mock
}

func (m *MockAlertRepository) UpsertByNaturalKey(ctx context.Context, a *alerts.Alert) (bool, error) {
	args := m.Called(ctx, a)
	return args.Bool(0), args.Error(1)
}

func (m *MockAlertRepository) GetByID(ctx context.Context, id uuid.UUID) (*alerts.Alert, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*alerts.Alert), args.Error(1)
}

func (m *MockAlertRepository) GetByNaturalKey(ctx context.Context, platform, sourceID string) (*alerts.Alert, error) {
	args := m.Called(ctx, platform, sourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*alerts.Alert), args.Error(1)
}

func (m *MockAlertRepository) List(ctx context.Context, filter *alerts.ListFilter) ([]*alerts.Alert, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*alerts.Alert), args.Get(1).(int64), args.Error(2)
}

func (m *MockAlertRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status alerts.Status, resolvedAt *time.Time) error {
	args := m.Called(ctx, id, status, resolvedAt)
	return args.Error(0)
}

func (m *MockAlertRepository) Assign(ctx context.Context, id uuid.UUID, officer string) error {
	args := m.Called(ctx, id, officer)
	return args.Error(0)
}

func (m *MockAlertRepository) GetStats(ctx context.Context, since time.Time) (*alerts.Stats, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*alerts.Stats), args.Error(1)
}
