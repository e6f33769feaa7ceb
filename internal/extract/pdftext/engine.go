package pdftext

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ledongthuc/pdf"

	"orvex/internal/domain"
	"orvex/internal/port"
)

const engineName = "pdftext"

// Engine extracts embedded text from PDF documents. It is the cheap
// head of the fallback chain: purely local, no OCR, fails fast on
// scanned documents so the chain can escalate.
type Engine struct {
	priority int
}

// NewEngine creates the local PDF text engine.
func NewEngine(priority int) *Engine {
	return &Engine{priority: priority}
}

func (e *Engine) Name() string { return engineName }

func (e *Engine) Priority() int { return e.priority }

func (e *Engine) Capabilities() []string { return []string{port.CapText} }

// Extract parses the document on a separate goroutine so the request
// can observe cancellation while the parse runs.
func (e *Engine) Extract(ctx context.Context, source string, ectx *domain.ExtractionContext) (*domain.ExtractionResult, error) {
	type parsed struct {
		result *domain.ExtractionResult
		err    error
	}
	done := make(chan parsed, 1)
	go func() {
		result, err := parseFile(source)
		done <- parsed{result: result, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case p := <-done:
		return p.result, p.err
	}
}

func parseFile(source string) (*domain.ExtractionResult, error) {
	f, reader, err := pdf.Open(source)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	defer func() { _ = f.Close() }()

	totalPages := reader.NumPage()
	result := &domain.ExtractionResult{
		Pages: make([]domain.PageResult, 0, totalPages),
		Metadata: map[string]string{
			"engine_name": engineName,
			"page_count":  strconv.Itoa(totalPages),
		},
	}

	for pageNo := 1; pageNo <= totalPages; pageNo++ {
		page := reader.Page(pageNo)
		if page.V.IsNull() {
			result.Pages = append(result.Pages, domain.PageResult{PageNumber: pageNo, Text: ""})
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single bad page is advisory; remaining pages still count.
			result.Errors = append(result.Errors, fmt.Sprintf("page %d: %v", pageNo, err))
			text = ""
		}
		result.Pages = append(result.Pages, domain.PageResult{PageNumber: pageNo, Text: text})
	}

	result.JoinPages()
	return result, nil
}
