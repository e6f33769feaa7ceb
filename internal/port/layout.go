package port

import (
	"context"

	"orvex/internal/domain"
)

// LayoutAnalyzer produces structural hints from an extraction result.
// Returning an empty LayoutResult is valid and means no layout info.
type LayoutAnalyzer interface {
	Analyze(ctx context.Context, source string, extraction *domain.ExtractionResult, ectx *domain.ExtractionContext) (*domain.LayoutResult, error)
}
