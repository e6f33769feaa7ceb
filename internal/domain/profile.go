package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Well-known profile and form identifiers.
const (
	DefaultProfileID = "default"
	DefaultFormID    = "default_form"
)

// CustomerForm describes one document layout a customer is known to
// send, with form-specific aliases and examples layered on top of the
// profile-level ones.
type CustomerForm struct {
	ID             string              `yaml:"id" json:"id"`
	Description    string              `yaml:"description" json:"description,omitempty"`
	LabelAliases   map[string][]string `yaml:"label_aliases" json:"label_aliases,omitempty"`
	ExampleOrders  []map[string]any    `yaml:"example_orders" json:"example_orders,omitempty"`
	ReasoningNotes []string            `yaml:"reasoning_notes" json:"reasoning_notes,omitempty"`
	SchemaName     string              `yaml:"schema_name" json:"schema_name,omitempty"`
}

// CustomerProfile is customer-specific extraction metadata: default
// currency for back-fill, label aliases and example orders for prompt
// construction, and named forms. Instances are shared and read-only;
// the pipeline never mutates them.
type CustomerProfile struct {
	ID              string                  `yaml:"id" json:"id"`
	DefaultCurrency string                  `yaml:"default_currency" json:"default_currency,omitempty"`
	LabelAliases    map[string][]string     `yaml:"label_aliases" json:"label_aliases,omitempty"`
	ExampleOrders   []map[string]any        `yaml:"example_orders" json:"example_orders,omitempty"`
	Metadata        map[string]string       `yaml:"metadata" json:"metadata,omitempty"`
	Forms           map[string]CustomerForm `yaml:"forms" json:"forms,omitempty"`
}

// ResolveForm returns the requested form, falling back to the
// well-known default form, or nil when neither exists.
func (p *CustomerProfile) ResolveForm(formID string) *CustomerForm {
	if formID != "" {
		if form, ok := p.Forms[formID]; ok {
			return &form
		}
	}
	if form, ok := p.Forms[DefaultFormID]; ok {
		return &form
	}
	return nil
}

// PromptMetadata renders the profile as a single descriptive line for
// prompt injection: default currency, active form, merged alias map,
// and free metadata.
func (p *CustomerProfile) PromptMetadata(formID string) string {
	form := p.ResolveForm(formID)

	aliasMap := make(map[string][]string, len(p.LabelAliases))
	for label, values := range p.LabelAliases {
		aliasMap[label] = append([]string(nil), values...)
	}
	if form != nil {
		for label, values := range form.LabelAliases {
			aliasMap[label] = append(aliasMap[label], values...)
		}
	}

	aliasText := renderAliases(aliasMap)
	if aliasText == "" {
		aliasText = "none"
	}

	metadataText := renderMetadata(p.Metadata)
	if metadataText == "" {
		metadataText = "no extra metadata"
	}

	formText := "Active form: default"
	notes := ""
	if form != nil {
		formText = fmt.Sprintf("Active form: %s (%s)", form.ID, form.Description)
		notes = strings.Join(form.ReasoningNotes, " ")
	}

	currency := p.DefaultCurrency
	if currency == "" {
		currency = "unspecified"
	}

	return strings.TrimSpace(fmt.Sprintf(
		"Profile %s - default currency: %s. %s. Label aliases: %s. Metadata: %s. %s",
		p.ID, currency, formText, aliasText, metadataText, notes,
	))
}

// FewShotExamples renders the profile's example orders (plus the
// active form's) as one JSON object per line, or "" when none exist.
func (p *CustomerProfile) FewShotExamples(formID string) string {
	examples := append([]map[string]any(nil), p.ExampleOrders...)
	if form := p.ResolveForm(formID); form != nil {
		examples = append(examples, form.ExampleOrders...)
	}
	if len(examples) == 0 {
		return ""
	}
	lines := make([]string, 0, len(examples))
	for _, example := range examples {
		encoded, err := json.Marshal(example)
		if err != nil {
			continue
		}
		lines = append(lines, string(encoded))
	}
	return strings.Join(lines, "\n")
}

func renderAliases(aliasMap map[string][]string) string {
	labels := make([]string, 0, len(aliasMap))
	for label, values := range aliasMap {
		if len(values) > 0 {
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)

	parts := make([]string, 0, len(labels))
	for _, label := range labels {
		seen := make(map[string]bool)
		uniq := make([]string, 0, len(aliasMap[label]))
		for _, v := range aliasMap[label] {
			if !seen[v] {
				seen[v] = true
				uniq = append(uniq, v)
			}
		}
		sort.Strings(uniq)
		parts = append(parts, fmt.Sprintf("%s: %s", label, strings.Join(uniq, ", ")))
	}
	return strings.Join(parts, "; ")
}

func renderMetadata(metadata map[string]string) string {
	keys := make([]string, 0, len(metadata))
	for key := range metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", key, metadata[key]))
	}
	return strings.Join(parts, ", ")
}
