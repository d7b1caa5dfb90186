// Package export writes parsed receipt records as spreadsheets.
package export

import (
	"strconv"

	"github.com/zombor/bill-splitter/internal/parsing"
)

// Header is the first row of every export
var Header = []string{"Item", "Quantity", "Price"}

// row renders a record as text cells; absent values are empty
func row(rec parsing.Record) []string {
	cells := make([]string, len(Header))
	if rec.ItemName != nil {
		cells[0] = *rec.ItemName
	}
	if rec.Quantity != nil {
		cells[1] = strconv.Itoa(*rec.Quantity)
	}
	if rec.Price != nil {
		cells[2] = rec.Price.StringFixed(2)
	}
	return cells
}
