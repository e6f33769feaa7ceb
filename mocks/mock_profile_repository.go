package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"orvex/internal/domain"
)

// MockProfileRepository is a mock implementation of port.ProfileRepository.
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) Load(ctx context.Context, profileID string) (*domain.CustomerProfile, error) {
	args := m.Called(ctx, profileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CustomerProfile), args.Error(1)
}
