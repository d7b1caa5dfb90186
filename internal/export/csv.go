package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/zombor/bill-splitter/internal/parsing"
)

// WriteCSV writes records as CSV with a header row
func WriteCSV(w io.Writer, records []parsing.Record) error {
	csvWriter := csv.NewWriter(w)

	if err := csvWriter.Write(Header); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for i, rec := range records {
		if err := csvWriter.Write(row(rec)); err != nil {
			return fmt.Errorf("writing CSV row %d: %w", i+1, err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}
