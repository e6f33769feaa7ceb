package reasoning

import (
	"fmt"
	"strings"

	"orvex/internal/domain"
)

// systemMessage pins the reasoning engine to its one job: a single
// JSON object, nothing invented, ambiguity left null.
const systemMessage = "You are an order-extraction engine for an ERP system. You read noisy " +
	"order forms and output exactly one JSON object conforming to a fixed schema. " +
	"Use only information present in the text; leave ambiguous fields null. Never " +
	"invent internal product numbers. Do not output anything except the JSON."

const instructions = "Return a single JSON object matching the schema. No markdown fences, " +
	"no comments, no extra whitespace. If unsure about a field, set it to null."

// PromptBuilder renders a ReasoningRequest into the system and user
// messages sent to the reasoning engine.
type PromptBuilder struct{}

// NewPromptBuilder creates the default prompt builder.
func NewPromptBuilder() *PromptBuilder { return &PromptBuilder{} }

// BuildMessages returns the (system, user) message pair for a request.
func (b *PromptBuilder) BuildMessages(req *domain.ReasoningRequest) (string, string) {
	return systemMessage, b.buildUserMessage(req)
}

func (b *PromptBuilder) buildUserMessage(req *domain.ReasoningRequest) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Document type: customer order form. Active customer profile: %s.\n", req.Profile.ID)
	sb.WriteString(req.Profile.PromptMetadata(req.FormID))
	sb.WriteString("\n")

	if section := req.Layout.PromptSection(); section != "" {
		sb.WriteString("\n")
		sb.WriteString(section)
		sb.WriteString("\n")
	}

	sb.WriteString("\nLiteral JSON schema (as provided):\n")
	sb.WriteString(req.SchemaLiteral)
	sb.WriteString("\n\nRaw text extracted from the document (triple-backtick fenced).\n```")
	sb.WriteString(req.Text)
	sb.WriteString("```\n\nInstructions:\n")
	sb.WriteString(instructions)
	sb.WriteString("\n")

	if examples := req.Profile.FewShotExamples(req.FormID); examples != "" {
		sb.WriteString("Few-shot examples:\n")
		sb.WriteString(examples)
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "Raw filename: %s", req.RawFilename)
	return sb.String()
}
