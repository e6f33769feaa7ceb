package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"orvex/internal/domain"
)

// MockExtractionEngine is a mock implementation of port.ExtractionEngine.
type MockExtractionEngine struct {
	mock.Mock
	EngineName     string
	EnginePriority int
	EngineCaps     []string
}

func (m *MockExtractionEngine) Name() string { return m.EngineName }

func (m *MockExtractionEngine) Priority() int { return m.EnginePriority }

func (m *MockExtractionEngine) Capabilities() []string {
	if m.EngineCaps == nil {
		return []string{"text"}
	}
	return m.EngineCaps
}

func (m *MockExtractionEngine) Extract(ctx context.Context, source string, ectx *domain.ExtractionContext) (*domain.ExtractionResult, error) {
	args := m.Called(ctx, source, ectx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionResult), args.Error(1)
}
