package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"

	"orvex/internal/domain"
)

// monetary field names coerced to exact decimal strings.
var (
	totalsMoneyFields = []string{"subtotal", "tax_amount", "grand_total"}
	lineMoneyFields   = []string{"unit_price", "line_total"}
)

// Normalizer repairs and validates the untrusted payload returned by a
// reasoning engine, producing a typed OrderResult. Monetary values are
// re-encoded as fixed-point decimal strings so no binary float ever
// reaches a consumer.
type Normalizer struct {
	schema *jsonschema.Schema
}

// NewNormalizer compiles the given JSON-Schema for payload validation.
func NewNormalizer(jsonSchema map[string]any) (*Normalizer, error) {
	raw, err := json.Marshal(jsonSchema)
	if err != nil {
		return nil, fmt.Errorf("marshaling schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("order.schema.json", bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("adding schema resource: %w", err)
	}
	compiled, err := compiler.Compile("order.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}
	return &Normalizer{schema: compiled}, nil
}

// Normalize applies, in order: default back-fill, decimal coercion,
// filename/currency back-fill, confidence derivation from logprobs,
// and schema validation. Any repair that cannot be made safely is a
// hard failure wrapping ErrInvalidPayload.
func (n *Normalizer) Normalize(output *domain.ReasoningOutput, rawFilename string, profile *domain.CustomerProfile) (*domain.OrderResult, error) {
	payload, err := decodePayload(output.RawPayload)
	if err != nil {
		return nil, err
	}

	backfillDefaults(payload, profile)

	if err := coerceMonetaryFields(payload); err != nil {
		return nil, err
	}

	backfillHeader(payload, rawFilename, profile)

	if conf, ok := confidenceFromLogprobs(output.Logprobs); ok {
		payload["confidence"] = conf
	}

	normalized, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("re-encoding payload: %w", err)
	}

	// Validate against a plain decode; the schema does not understand
	// json.Number.
	var doc any
	if err := json.Unmarshal(normalized, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	if err := n.schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}

	var result domain.OrderResult
	if err := json.Unmarshal(normalized, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	return &result, nil
}

// decodePayload parses with UseNumber so decimal-looking literals keep
// their textual form until coercion.
func decodePayload(raw json.RawMessage) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: payload is not a JSON object: %v", domain.ErrInvalidPayload, err)
	}
	if payload == nil {
		return nil, fmt.Errorf("%w: payload is not a JSON object", domain.ErrInvalidPayload)
	}
	return payload, nil
}

func backfillDefaults(payload map[string]any, profile *domain.CustomerProfile) {
	if payload["header"] == nil {
		payload["header"] = map[string]any{}
	}
	if payload["lines"] == nil {
		payload["lines"] = []any{}
	}
	if _, ok := payload["totals"]; !ok {
		payload["totals"] = nil
	}
	if _, ok := payload["confidence"]; !ok {
		payload["confidence"] = nil
	}
	if id, _ := payload["customer_profile_id"].(string); id == "" {
		payload["customer_profile_id"] = profile.ID
	}
}

func coerceMonetaryFields(payload map[string]any) error {
	if totals, ok := payload["totals"].(map[string]any); ok {
		for _, field := range totalsMoneyFields {
			if err := coerceField(totals, field, "totals."+field); err != nil {
				return err
			}
		}
	}
	lines, ok := payload["lines"].([]any)
	if !ok {
		return nil
	}
	for i, raw := range lines {
		line, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		for _, field := range lineMoneyFields {
			if err := coerceField(line, field, fmt.Sprintf("lines[%d].%s", i, field)); err != nil {
				return err
			}
		}
	}
	return nil
}

func coerceField(obj map[string]any, field, path string) error {
	value, ok := obj[field]
	if !ok || value == nil {
		return nil
	}
	coerced, err := coerceDecimal(value)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidPayload, path, err)
	}
	obj[field] = coerced
	return nil
}

// coerceDecimal turns any numeric or string representation into an
// exact decimal string. Unparseable values are a hard failure.
func coerceDecimal(value any) (string, error) {
	var text string
	switch v := value.(type) {
	case json.Number:
		text = v.String()
	case string:
		text = strings.TrimSpace(v)
	case float64:
		text = decimal.NewFromFloat(v).String()
	default:
		return "", fmt.Errorf("unsupported decimal type %T", value)
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return "", fmt.Errorf("not a decimal: %q", text)
	}
	return d.String(), nil
}

func backfillHeader(payload map[string]any, rawFilename string, profile *domain.CustomerProfile) {
	header, ok := payload["header"].(map[string]any)
	if !ok {
		return
	}
	if s, _ := header["raw_filename"].(string); s == "" {
		header["raw_filename"] = rawFilename
	}
	if s, _ := header["currency"].(string); s == "" && profile.DefaultCurrency != "" {
		header["currency"] = profile.DefaultCurrency
	}
}

// confidenceFromLogprobs derives a calibration score from token
// log-probabilities: for every token take the highest reported
// log-probability, average, then map through clamp(1 + avg/5, 0, 1).
// The heuristic is a calibration convention, not a true probability.
// Returns false when no logprob data exists, leaving the
// model-reported confidence untouched.
func confidenceFromLogprobs(logprobs []domain.TokenLogprob) (float64, bool) {
	if len(logprobs) == 0 {
		return 0, false
	}
	var sum float64
	for _, tok := range logprobs {
		best := tok.Logprob
		for _, alt := range tok.TopLogprobs {
			if alt > best {
				best = alt
			}
		}
		sum += best
	}
	avg := sum / float64(len(logprobs))
	conf := 1 + avg/5
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	return conf, true
}
