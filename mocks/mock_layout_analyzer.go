package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"orvex/internal/domain"
)

// MockLayoutAnalyzer is a mock implementation of port.LayoutAnalyzer.
type MockLayoutAnalyzer struct {
	mock.Mock
}

func (m *MockLayoutAnalyzer) Analyze(ctx context.Context, source string, extraction *domain.ExtractionResult, ectx *domain.ExtractionContext) (*domain.LayoutResult, error) {
	args := m.Called(ctx, source, extraction, ectx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LayoutResult), args.Error(1)
}
