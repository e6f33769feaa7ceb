package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"orvex/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// ingestionColumns defines the audit export header row.
var ingestionColumns = []string{
	"ID",
	"Raw Filename",
	"Customer Profile",
	"Form",
	"Engine",
	"Model",
	"Status",
	"Confidence",
	"Extraction Errors",
	"Duration (ms)",
	"Error Detail",
	"Created At",
}

// lineColumns defines the order-line export header row.
var lineColumns = []string{
	"Line No",
	"Customer Item No",
	"Internal Item No",
	"Description",
	"Quantity",
	"Unit",
	"Unit Price",
	"Discount %",
	"Line Total",
}

// Writer wraps csv.Writer for exporting ingestion records as CSV.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(ingestionColumns)
}

// WriteRecords converts a batch of ingestion records to CSV rows and writes them.
func (w *Writer) WriteRecords(records []domain.IngestionRecord) error {
	for i := range records {
		if err := w.csv.Write(recordToRow(&records[i])); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

func recordToRow(r *domain.IngestionRecord) []string {
	row := make([]string, len(ingestionColumns))
	row[0] = r.ID.String()
	row[1] = r.RawFilename
	row[2] = r.CustomerProfileID
	row[3] = r.FormID
	row[4] = r.EngineName
	row[5] = r.ModelUsed
	row[6] = string(r.Status)
	row[7] = formatFloat(r.Confidence)
	row[8] = strconv.Itoa(r.ExtractionErrors)
	row[9] = strconv.FormatInt(r.DurationMs, 10)
	row[10] = r.ErrorDetail
	row[11] = r.CreatedAt.UTC().Format(time.RFC3339)
	return row
}

// WriteOrderCSV writes an extracted order's lines as CSV, BOM first.
func WriteOrderCSV(w io.Writer, order *domain.OrderResult) error {
	if _, err := w.Write(BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(lineColumns); err != nil {
		return err
	}
	for i := range order.Lines {
		if err := cw.Write(lineToRow(&order.Lines[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func lineToRow(l *domain.OrderLine) []string {
	row := make([]string, len(lineColumns))
	row[0] = formatInt(l.LineNo)
	row[1] = deref(l.CustomerItemNo)
	row[2] = deref(l.InternalItemNo)
	row[3] = deref(l.Description)
	row[4] = formatFloat(l.Quantity)
	row[5] = deref(l.Unit)
	row[6] = deref(l.UnitPrice)
	row[7] = formatFloat(l.DiscountPercent)
	row[8] = deref(l.LineTotal)
	return row
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%g", *v)
}
