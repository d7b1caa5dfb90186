package bill

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/bill-splitter/internal/parsing"
)

// Bill represents a shared expense whose items are split between people
type Bill struct {
	ID                 string          `json:"id" db:"id"`
	Title              string          `json:"title" db:"title"`
	UserID             string          `json:"user_id" db:"user_id"`
	Total              decimal.Decimal `json:"total" db:"total"`
	ReceiptFilename    string          `json:"receipt_filename,omitempty" db:"receipt_filename"`
	ReceiptContentType string          `json:"receipt_content_type,omitempty" db:"receipt_content_type"`
	TotalCalculatedAt  *time.Time      `json:"total_calculated_at,omitempty" db:"total_calculated_at"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
}

// Item is one line of a bill
type Item struct {
	ID        string          `json:"item_id" db:"id"`
	BillID    string          `json:"bill_id" db:"bill_id"`
	Position  int             `json:"position" db:"position"`
	Name      string          `json:"name" db:"name"`
	Quantity  int             `json:"quantity" db:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price" db:"unit_price"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Cost is the unit price times the quantity
func (i *Item) Cost() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Record converts the item back to a receipt record
func (i *Item) Record() parsing.Record {
	name, quantity, price := i.Name, i.Quantity, i.UnitPrice
	return parsing.Record{ItemName: &name, Quantity: &quantity, Price: &price}
}
