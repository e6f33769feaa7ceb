package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"orvex/internal/domain"
)

// MockReasoningEngine is a mock implementation of port.ReasoningEngine.
type MockReasoningEngine struct {
	mock.Mock
}

func (m *MockReasoningEngine) ExtractOrder(ctx context.Context, req *domain.ReasoningRequest) (*domain.ReasoningOutput, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReasoningOutput), args.Error(1)
}
