package extract

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"unicode"

	"orvex/internal/domain"
	"orvex/internal/port"
)

// Metadata keys stamped by the chain.
const (
	MetaEngineName    = "engine_name"
	MetaFallbackChain = "fallback_chain"
)

// ChainConfig holds the quality gate thresholds.
type ChainConfig struct {
	// MinCharacters is the minimum trimmed text length an engine must
	// produce to be accepted without escalation.
	MinCharacters int
	// MinAlphaRatio is the minimum ratio of alphanumeric characters to
	// total characters in the trimmed text.
	MinAlphaRatio float64
}

// Chain tries extraction engines in ascending priority order and
// accepts the first result that passes the quality gate. Per-engine
// failures are absorbed as advisory errors; costly engines (OCR) are
// invoked only when cheaper ones under-deliver. Chain itself satisfies
// port.ExtractionEngine so chains can nest.
type Chain struct {
	engines []port.ExtractionEngine
	name    string
	cfg     ChainConfig
}

// NewChain creates a Chain from an unordered engine set. An empty set
// is valid and yields empty results rather than errors.
func NewChain(engines []port.ExtractionEngine, cfg ChainConfig) *Chain {
	sorted := append([]port.ExtractionEngine(nil), engines...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() < sorted[j].Priority()
	})
	names := make([]string, len(sorted))
	for i, engine := range sorted {
		names[i] = engine.Name()
	}
	name := strings.Join(names, "+")
	if name == "" {
		name = "none"
	}
	return &Chain{
		engines: sorted,
		name:    name,
		cfg:     cfg,
	}
}

// Name returns the composite chain name, engine names joined in
// priority order.
func (c *Chain) Name() string { return c.name }

// Priority places a chain at the head when nested inside another chain.
func (c *Chain) Priority() int { return 0 }

// Capabilities returns the union of the member engines' capabilities.
func (c *Chain) Capabilities() []string {
	seen := make(map[string]bool)
	var caps []string
	for _, engine := range c.engines {
		for _, tag := range engine.Capabilities() {
			if !seen[tag] {
				seen[tag] = true
				caps = append(caps, tag)
			}
		}
	}
	return caps
}

// Extract runs the fallback chain. It never returns an error for
// per-engine failures; the only error paths are context cancellation
// and deadline expiry, which must reach the caller distinctly.
func (c *Chain) Extract(ctx context.Context, source string, ectx *domain.ExtractionContext) (*domain.ExtractionResult, error) {
	forceOCR := ectx.ForceOCREffective()
	advisories := []string{}
	var best *domain.ExtractionResult

	if len(c.engines) == 0 {
		advisories = append(advisories, "no extraction engines configured")
	}

	for _, engine := range c.engines {
		result, err := engine.Extract(ctx, source, ectx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			advisories = append(advisories, fmt.Sprintf("%s: %v", engine.Name(), err))
			continue
		}
		if result == nil {
			advisories = append(advisories, fmt.Sprintf("%s: nil result", engine.Name()))
			continue
		}

		if reason, ok := c.gate(engine, result, forceOCR); !ok {
			advisories = append(advisories, fmt.Sprintf("%s: %s", engine.Name(), reason))
			if best == nil || len(result.CombinedText) > len(best.CombinedText) {
				best = result
			}
			continue
		}

		if result.Metadata == nil {
			result.Metadata = map[string]string{}
		}
		if result.Metadata[MetaEngineName] == "" {
			result.Metadata[MetaEngineName] = engine.Name()
		}
		result.Metadata[MetaFallbackChain] = c.name
		result.Errors = append(advisories, result.Errors...)
		return result, nil
	}

	if best != nil {
		log.Printf("extract.Chain: no engine passed the quality gate, returning best effort (%d chars)", len(best.CombinedText))
		best.Errors = append(advisories, best.Errors...)
		if best.Metadata == nil {
			best.Metadata = map[string]string{}
		}
		if best.Metadata[MetaEngineName] == "" {
			best.Metadata[MetaEngineName] = c.name
		}
		return best, nil
	}

	return &domain.ExtractionResult{
		CombinedText: "",
		Metadata:     map[string]string{MetaEngineName: c.name},
		Errors:       advisories,
	}, nil
}

// gate decides whether a result is good enough to stop the chain.
// The returned reason is recorded as an advisory error on rejection.
func (c *Chain) gate(engine port.ExtractionEngine, result *domain.ExtractionResult, forceOCR bool) (string, bool) {
	if forceOCR && !port.HasCapability(engine, port.CapOCR) {
		return "force_ocr requested but engine lacks ocr capability", false
	}

	trimmed := strings.TrimSpace(result.CombinedText)
	if trimmed == "" {
		return "empty output", false
	}
	if len(trimmed) < c.cfg.MinCharacters {
		return fmt.Sprintf("output too short (%d chars, minimum %d)", len(trimmed), c.cfg.MinCharacters), false
	}
	if ratio := alphaRatio(trimmed); ratio < c.cfg.MinAlphaRatio {
		return fmt.Sprintf("alphanumeric ratio %.2f below minimum %.2f", ratio, c.cfg.MinAlphaRatio), false
	}
	return "", true
}

// alphaRatio is the share of letters and digits among all runes.
func alphaRatio(text string) float64 {
	runes := []rune(text)
	if len(runes) == 0 {
		return 0
	}
	alnum := 0
	for _, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			alnum++
		}
	}
	return float64(alnum) / float64(len(runes))
}
