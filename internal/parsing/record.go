package parsing

import "github.com/shopspring/decimal"

// PriceLine is an OCR line made of nothing but a two-decimal amount
type PriceLine struct {
	Value decimal.Decimal
}

// ItemLine is any other non-empty OCR line
type ItemLine struct {
	Raw string
}

// Lines holds the classified lines of one OCR text, each list in source order
type Lines struct {
	Items  []ItemLine
	Prices []PriceLine
}

// Record is one parsed receipt entry. A nil field means the value was not
// present on the receipt.
type Record struct {
	ItemName *string          `json:"item_name"`
	Quantity *int             `json:"quantity"`
	Price    *decimal.Decimal `json:"price"`
}

// Complete reports whether the record has both a name and a price
func (r Record) Complete() bool {
	return r.ItemName != nil && r.Price != nil
}
