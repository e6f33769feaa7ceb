package port

import (
	"context"

	"orvex/internal/domain"
)

// Engine capability tags. Every engine declares at least CapText;
// OCR-capable engines add CapOCR.
const (
	CapText = "text"
	CapOCR  = "ocr"
)

// ExtractionEngine is a capability-tagged unit of work producing
// page-level text from a source document. Implementations return an
// error for their own failures; the chain absorbs those errors and
// never lets them escape a request.
type ExtractionEngine interface {
	// Name identifies the engine in metadata and advisory errors.
	Name() string
	// Priority orders engines in a chain: lower values are tried
	// first, so cheap local engines sit before costly OCR calls.
	Priority() int
	// Capabilities returns the engine's capability tags.
	Capabilities() []string
	Extract(ctx context.Context, source string, ectx *domain.ExtractionContext) (*domain.ExtractionResult, error)
}

// HasCapability reports whether an engine carries the given tag.
func HasCapability(engine ExtractionEngine, tag string) bool {
	for _, cap := range engine.Capabilities() {
		if cap == tag {
			return true
		}
	}
	return false
}
