package domain

import (
	"encoding/json"
	"strings"
)

// Hint keys recognized on an ExtractionContext.
const (
	HintForceOCR = "force_ocr"
)

// ExtractionContext carries per-request hints for extraction engines.
// It is owned by a single in-flight request and never shared.
type ExtractionContext struct {
	RawFilename       string
	CustomerProfileID string
	Hints             map[string]string
	ForceOCR          bool
}

// ForceOCREffective reports whether OCR was requested either via the
// explicit flag or via a boolean-coerced hint value.
func (c *ExtractionContext) ForceOCREffective() bool {
	if c.ForceOCR {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(c.Hints[HintForceOCR])) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// PageResult is the text extracted from a single document page.
type PageResult struct {
	PageNumber int               `json:"page_number"`
	Text       string            `json:"text"`
	Layout     []LayoutBlock     `json:"layout,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// ExtractionResult is the normalized payload emitted by any extraction
// engine. CombinedText is the newline-join of page texts in page order.
// Errors is advisory only: entries describe engines that failed or
// under-delivered, they never abort a request.
type ExtractionResult struct {
	CombinedText string            `json:"combined_text"`
	Pages        []PageResult      `json:"pages"`
	Metadata     map[string]string `json:"metadata"`
	Errors       []string          `json:"errors"`
}

// JoinPages recomputes CombinedText from Pages, preserving order.
func (r *ExtractionResult) JoinPages() {
	texts := make([]string, len(r.Pages))
	for i, p := range r.Pages {
		texts[i] = p.Text
	}
	r.CombinedText = strings.Join(texts, "\n")
}

// LayoutBlock is one typed region detected in a document.
type LayoutBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
	Page int    `json:"page,omitempty"`
	X    int    `json:"x,omitempty"`
	Y    int    `json:"y,omitempty"`
}

// LayoutResult is the structural view of a document produced by a
// layout analyzer. An empty block list is valid and means "no layout
// information available".
type LayoutResult struct {
	Blocks     []LayoutBlock `json:"blocks"`
	EngineName string        `json:"engine_name"`
}

// PromptSection renders a condensed preview of the first blocks for
// prompt injection. Returns "" when no layout info exists.
func (l *LayoutResult) PromptSection() string {
	if l == nil || len(l.Blocks) == 0 {
		return ""
	}
	preview := l.Blocks
	if len(preview) > 5 {
		preview = preview[:5]
	}
	var b strings.Builder
	b.WriteString("Layout summary (first blocks only):")
	for _, block := range preview {
		b.WriteString("\n- ")
		b.WriteString(block.Type)
		b.WriteString(": ")
		b.WriteString(block.Text)
	}
	return b.String()
}

// ReasoningRequest binds everything the reasoning engine needs for one
// extraction: source text, schema, profile context, and optional
// layout hints. Owned by a single request.
type ReasoningRequest struct {
	Text          string
	RawFilename   string
	Profile       *CustomerProfile
	SchemaLiteral string
	JSONSchema    map[string]any
	FormID        string
	Layout        *LayoutResult
}

// TokenLogprob carries the log-probability data reported for a single
// emitted output token, including the alternatives the model scored.
type TokenLogprob struct {
	Token       string    `json:"token"`
	Logprob     float64   `json:"logprob"`
	TopLogprobs []float64 `json:"top_logprobs"`
}

// ReasoningOutput is the untrusted result of a reasoning call: the raw
// structured payload plus whatever token log-probabilities the model
// reported. The payload must pass normalization before use.
type ReasoningOutput struct {
	RawPayload json.RawMessage
	Logprobs   []TokenLogprob
	ModelUsed  string
}
