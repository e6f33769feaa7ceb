package layout

import (
	"context"
	"strings"
	"unicode"

	"orvex/internal/domain"
)

// NoopAnalyzer is the default layout analyzer: it reports nothing.
type NoopAnalyzer struct{}

// NewNoopAnalyzer creates the default no-op analyzer.
func NewNoopAnalyzer() *NoopAnalyzer { return &NoopAnalyzer{} }

func (a *NoopAnalyzer) Analyze(ctx context.Context, source string, extraction *domain.ExtractionResult, ectx *domain.ExtractionContext) (*domain.LayoutResult, error) {
	return &domain.LayoutResult{EngineName: "none"}, nil
}

// TextBlockAnalyzer derives coarse structural hints from extracted
// text alone: short shouty lines become headings, lines dominated by
// digits and separators become table rows, the rest paragraphs. The
// hints feed the reasoning prompt; they carry no positions.
type TextBlockAnalyzer struct{}

// NewTextBlockAnalyzer creates the heuristic text-block analyzer.
func NewTextBlockAnalyzer() *TextBlockAnalyzer { return &TextBlockAnalyzer{} }

func (a *TextBlockAnalyzer) Analyze(ctx context.Context, source string, extraction *domain.ExtractionResult, ectx *domain.ExtractionContext) (*domain.LayoutResult, error) {
	result := &domain.LayoutResult{EngineName: "textblocks"}
	for _, page := range extraction.Pages {
		for _, rawLine := range strings.Split(page.Text, "\n") {
			line := strings.TrimSpace(rawLine)
			if line == "" {
				continue
			}
			result.Blocks = append(result.Blocks, domain.LayoutBlock{
				Type: classifyLine(line),
				Text: line,
				Page: page.PageNumber,
			})
		}
	}
	return result, nil
}

func classifyLine(line string) string {
	if looksTabular(line) {
		return "table_row"
	}
	if looksHeading(line) {
		return "heading"
	}
	return "paragraph"
}

// looksTabular flags lines dominated by numbers and column separators,
// the shape of an order line in a flattened table.
func looksTabular(line string) bool {
	if strings.Count(line, "\t") >= 2 || strings.Count(line, "  ") >= 2 {
		return true
	}
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return false
	}
	numeric := 0
	for _, field := range fields {
		if isNumericField(field) {
			numeric++
		}
	}
	return float64(numeric)/float64(len(fields)) >= 0.5
}

func looksHeading(line string) bool {
	if len(line) > 48 {
		return false
	}
	letters := 0
	upper := 0
	for _, r := range line {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters == 0 {
		return false
	}
	if strings.HasSuffix(line, ":") {
		return true
	}
	return float64(upper)/float64(letters) >= 0.7
}

func isNumericField(field string) bool {
	stripped := strings.Trim(field, "$€£%.,:-")
	if stripped == "" {
		return false
	}
	for _, r := range stripped {
		if !unicode.IsDigit(r) && r != '.' && r != ',' {
			return false
		}
	}
	return true
}
