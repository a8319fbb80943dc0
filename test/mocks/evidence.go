package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/cyber-patrol/internal/evidence"
	"github.com/stretchr/testify/mock"
)

// MockEvidenceRepository is a mock implementation of evidence.RepositoryInterface
type MockEvidenceRepository struct {
	mock.Mock
}

func (m *MockEvidenceRepository) AlertExists(ctx context.Context, alertID uuid.UUID) (bool, error) {
	args := m.Called(ctx, alertID)
	return args.Bool(0), args.Error(1)
}

func (m *MockEvidenceRepository) CreateWithCustody(ctx context.Context, e *evidence.Evidence, first *evidence.CustodyEntry) error {
	args := m.Called(ctx, e, first)
	return args.Error(0)
}

func (m *MockEvidenceRepository) GetByID(ctx context.Context, id uuid.UUID) (*evidence.Evidence, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*evidence.Evidence), args.Error(1)
}

func (m *MockEvidenceRepository) AppendCustody(ctx context.Context, entry *evidence.CustodyEntry, advanceTo *evidence.LegalStatus) (evidence.LegalStatus, error) {
	args := m.Called(ctx, entry, advanceTo)
	return args.Get(0).(evidence.LegalStatus), args.Error(1)
}

func (m *MockEvidenceRepository) ListCustody(ctx context.Context, evidenceID uuid.UUID) ([]*evidence.CustodyEntry, error) {
	args := m.Called(ctx, evidenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*evidence.CustodyEntry), args.Error(1)
}

func (m *MockEvidenceRepository) ListByAlert(ctx context.Context, alertID uuid.UUID) ([]*evidence.Evidence, error) {
	args := m.Called(ctx, alertID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*evidence.Evidence), args.Error(1)
}

func (m *MockEvidenceRepository) RecordIntegrity(ctx context.Context, id uuid.UUID, result evidence.IntegrityResult, at time.Time) error {
	args := m.Called(ctx, id, result, at)
	return args.Error(0)
}

func (m *MockEvidenceRepository) SetArchiveKey(ctx context.Context, id uuid.UUID, key string) error {
	args := m.Called(ctx, id, key)
	return args.Error(0)
}
