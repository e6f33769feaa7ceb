package domain

// OrderHeader holds the header-level fields of an extracted order.
// All fields are nullable: the reasoning engine leaves ambiguous
// fields null rather than guessing.
type OrderHeader struct {
	CustomerName     *string `json:"customer_name"`
	CustomerNumber   *string `json:"customer_number"`
	CustomerPONumber *string `json:"customer_po_number"`
	OrderDate        *string `json:"order_date"`
	Currency         *string `json:"currency"`
	DeliveryAddress  *string `json:"delivery_address"`
	BillingAddress   *string `json:"billing_address"`
	PaymentTerms     *string `json:"payment_terms"`
	RawFilename      *string `json:"raw_filename"`
}

// OrderLine is a single order position. Monetary fields are exact
// fixed-point decimal strings, never binary floats.
type OrderLine struct {
	LineNo          *int     `json:"line_no"`
	CustomerItemNo  *string  `json:"customer_item_no"`
	InternalItemNo  *string  `json:"internal_item_no"`
	Description     *string  `json:"description"`
	Quantity        *float64 `json:"quantity"`
	Unit            *string  `json:"unit"`
	UnitPrice       *string  `json:"unit_price"`
	DiscountPercent *float64 `json:"discount_percent"`
	LineTotal       *string  `json:"line_total"`
}

// OrderTotals holds document-level monetary totals as decimal strings.
type OrderTotals struct {
	Subtotal   *string `json:"subtotal"`
	TaxAmount  *string `json:"tax_amount"`
	GrandTotal *string `json:"grand_total"`
}

// OrderResult is the validated, normalized output of one ingestion run.
type OrderResult struct {
	CustomerProfileID string       `json:"customer_profile_id"`
	Header            OrderHeader  `json:"header"`
	Lines             []OrderLine  `json:"lines"`
	Totals            *OrderTotals `json:"totals"`
	Confidence        *float64     `json:"confidence"`
}
