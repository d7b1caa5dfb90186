package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/zombor/bill-splitter/internal/parsing"
)

const sheetName = "Sheet1"

// WriteXLSX writes records to the first sheet of an Excel workbook.
// Quantities and prices are numeric cells; absent values are left empty.
func WriteXLSX(w io.Writer, records []parsing.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, rec := range records {
		cells := make([]any, len(Header))
		if rec.ItemName != nil {
			cells[0] = *rec.ItemName
		}
		if rec.Quantity != nil {
			cells[1] = *rec.Quantity
		}
		if rec.Price != nil {
			cells[2] = rec.Price.InexactFloat64()
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("locating row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(sheetName, cell, &cells); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
