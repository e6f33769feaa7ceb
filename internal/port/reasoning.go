package port

import (
	"context"

	"orvex/internal/domain"
)

// ReasoningEngine turns extracted text plus schema and profile context
// into a raw structured payload. The payload is untrusted: it must
// pass the response normalizer before anything downstream sees it.
// Implementations may retry internally but must never return a
// partially consumed stream.
type ReasoningEngine interface {
	ExtractOrder(ctx context.Context, req *domain.ReasoningRequest) (*domain.ReasoningOutput, error)
}
