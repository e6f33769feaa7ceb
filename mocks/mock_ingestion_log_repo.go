package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"orvex/internal/domain"
)

// MockIngestionLogRepo is a mock implementation of port.IngestionLogRepository.
type MockIngestionLogRepo struct {
	mock.Mock
}

func (m *MockIngestionLogRepo) Create(ctx context.Context, record *domain.IngestionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockIngestionLogRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.IngestionRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestionRecord), args.Error(1)
}

func (m *MockIngestionLogRepo) List(ctx context.Context, offset, limit int) ([]domain.IngestionRecord, int, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.IngestionRecord), args.Int(1), args.Error(2)
}
