package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"orvex/internal/domain"
)

const sheetName = "Sheet1"

// WriteIngestionXLSX writes ingestion records as an XLSX workbook.
func WriteIngestionXLSX(w io.Writer, records []domain.IngestionRecord) error {
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, ingestionColumns)
	for i := range records {
		rows = append(rows, recordToRow(&records[i]))
	}
	return writeSheet(w, rows)
}

// WriteOrderXLSX writes an extracted order's lines as an XLSX workbook.
func WriteOrderXLSX(w io.Writer, order *domain.OrderResult) error {
	rows := make([][]string, 0, len(order.Lines)+1)
	rows = append(rows, lineColumns)
	for i := range order.Lines {
		rows = append(rows, lineToRow(&order.Lines[i]))
	}
	return writeSheet(w, rows)
}

func writeSheet(w io.Writer, rows [][]string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("computing cell name: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}
	return f.Write(w)
}
