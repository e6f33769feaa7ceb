package schema

// OrderV1 is the default schema name.
const OrderV1 = "order_v1"

// orderV1Literal is the human-readable schema description injected
// verbatim into the reasoning prompt.
const orderV1Literal = `OrderLine:
    line_no: int | null
    customer_item_no: string | null
    internal_item_no: string | null  # never invent!
    description: string | null
    quantity: number | null
    unit: string | null
    unit_price: decimal string | null
    discount_percent: number | null
    line_total: decimal string | null

OrderHeader:
    customer_name: string | null
    customer_number: string | null
    customer_po_number: string | null
    order_date: string | null  # ISO-8601
    currency: string | null
    delivery_address: string | null
    billing_address: string | null
    payment_terms: string | null
    raw_filename: string | null

OrderTotals:
    subtotal: decimal string | null
    tax_amount: decimal string | null
    grand_total: decimal string | null

OrderResult:
    customer_profile_id: string
    header: OrderHeader
    lines: list of OrderLine
    totals: OrderTotals | null
    confidence: number | null`

// buildOrderV1Schema returns the machine-readable JSON-Schema for the
// order_v1 shape. It constrains the reasoning engine's structured
// output and drives strict validation during normalization.
func buildOrderV1Schema() map[string]any {
	headerProps := map[string]any{}
	for _, field := range []string{
		"customer_name", "customer_number", "customer_po_number",
		"order_date", "currency", "delivery_address",
		"billing_address", "payment_terms", "raw_filename",
	} {
		headerProps[field] = nullableString()
	}

	lineProps := map[string]any{
		"line_no":          map[string]any{"type": []string{"integer", "null"}},
		"customer_item_no": nullableString(),
		"internal_item_no": nullableString(),
		"description":      nullableString(),
		"quantity":         map[string]any{"type": []string{"number", "null"}},
		"unit":             nullableString(),
		"unit_price":       decimalProp(),
		"discount_percent": map[string]any{"type": []string{"number", "null"}},
		"line_total":       decimalProp(),
	}

	totalsProps := map[string]any{
		"subtotal":    decimalProp(),
		"tax_amount":  decimalProp(),
		"grand_total": decimalProp(),
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"customer_profile_id": map[string]any{"type": "string"},
			"header": map[string]any{
				"type":                 "object",
				"properties":           headerProps,
				"additionalProperties": false,
			},
			"lines": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"properties":           lineProps,
					"additionalProperties": false,
				},
			},
			"totals": map[string]any{
				"type":                 []string{"object", "null"},
				"properties":           totalsProps,
				"additionalProperties": false,
			},
			"confidence": map[string]any{
				"type":    []string{"number", "null"},
				"minimum": 0.0,
				"maximum": 1.0,
			},
		},
		"required":             []string{"customer_profile_id", "header", "lines"},
		"additionalProperties": false,
	}
}

// decimalProp is the normalized monetary field shape: an exact decimal
// string, or null.
func decimalProp() map[string]any {
	return map[string]any{
		"type":    []string{"string", "null"},
		"pattern": `^-?\d+(\.\d+)?$`,
	}
}

func nullableString() map[string]any {
	return map[string]any{"type": []string{"string", "null"}}
}
