package bill

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS bills (
	id                   TEXT PRIMARY KEY,
	title                TEXT NOT NULL,
	user_id              TEXT NOT NULL,
	total                TEXT NOT NULL,
	receipt_filename     TEXT NOT NULL,
	receipt_content_type TEXT NOT NULL,
	total_calculated_at  TIMESTAMP NULL,
	created_at           TIMESTAMP NOT NULL,
	updated_at           TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS items (
	id         TEXT PRIMARY KEY,
	bill_id    TEXT NOT NULL REFERENCES bills (id),
	position   INTEGER NOT NULL,
	name       TEXT NOT NULL,
	quantity   INTEGER NOT NULL,
	unit_price TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	UNIQUE (bill_id, position)
);
CREATE INDEX IF NOT EXISTS items_bill_id ON items (bill_id);
`

const billColumns = `id, title, user_id, total, receipt_filename, receipt_content_type, total_calculated_at, created_at, updated_at`

const itemColumns = `id, bill_id, position, name, quantity, unit_price, created_at`

// SQLDB implements the DB interface on a SQL database through sqlx.
// It is tested against sqlite3 and written to also run on PostgreSQL via pgx.
type SQLDB struct {
	db *sqlx.DB
}

// NewSQLDB opens a database with a registered driver ("sqlite3" or "pgx")
// and creates the tables if they don't exist
func NewSQLDB(driverName, dataSourceName string) (*SQLDB, error) {
	db, err := sqlx.Open(driverName, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driverName, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to %s database: %w", driverName, err)
	}
	if driverName == "sqlite3" {
		// sqlite allows one writer at a time
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}
	return &SQLDB{db: db}, nil
}

// SaveBill inserts or replaces a bill
func (s *SQLDB) SaveBill(bill *Bill) error {
	_, err := s.db.NamedExec(`
		INSERT INTO bills (`+billColumns+`)
		VALUES (:id, :title, :user_id, :total, :receipt_filename, :receipt_content_type, :total_calculated_at, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			user_id = excluded.user_id,
			total = excluded.total,
			receipt_filename = excluded.receipt_filename,
			receipt_content_type = excluded.receipt_content_type,
			total_calculated_at = excluded.total_calculated_at,
			updated_at = excluded.updated_at`, bill)
	if err != nil {
		return fmt.Errorf("saving bill %s: %w", bill.ID, err)
	}
	return nil
}

// GetBill retrieves a bill by ID
func (s *SQLDB) GetBill(id string) (*Bill, error) {
	var bill Bill
	err := s.db.Get(&bill, s.db.Rebind(`SELECT `+billColumns+` FROM bills WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: bill %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting bill %s: %w", id, err)
	}
	return &bill, nil
}

// ListBills returns all bills ordered by creation time
func (s *SQLDB) ListBills() ([]*Bill, error) {
	bills := make([]*Bill, 0)
	if err := s.db.Select(&bills, `SELECT `+billColumns+` FROM bills ORDER BY created_at, id`); err != nil {
		return nil, fmt.Errorf("listing bills: %w", err)
	}
	return bills, nil
}

// SaveItem inserts or replaces an item
func (s *SQLDB) SaveItem(item *Item) error {
	_, err := s.db.NamedExec(`
		INSERT INTO items (`+itemColumns+`)
		VALUES (:id, :bill_id, :position, :name, :quantity, :unit_price, :created_at)
		ON CONFLICT (id) DO UPDATE SET
			position = excluded.position,
			name = excluded.name,
			quantity = excluded.quantity,
			unit_price = excluded.unit_price`, item)
	if err != nil {
		return fmt.Errorf("saving item %s: %w", item.ID, err)
	}
	return nil
}

// ListItems returns the items of a bill ordered by position
func (s *SQLDB) ListItems(billID string) ([]*Item, error) {
	items := make([]*Item, 0)
	query := s.db.Rebind(`SELECT ` + itemColumns + ` FROM items WHERE bill_id = ? ORDER BY position`)
	if err := s.db.Select(&items, query, billID); err != nil {
		return nil, fmt.Errorf("listing items for bill %s: %w", billID, err)
	}
	return items, nil
}

// SQLX exposes the connection pool so other stores can share it
func (s *SQLDB) SQLX() *sqlx.DB {
	return s.db
}

// Close closes the database connection
func (s *SQLDB) Close() error {
	return s.db.Close()
}
