package bill

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zombor/bill-splitter/internal/parsing"
	"github.com/zombor/bill-splitter/internal/scanning"
)

// IDGenerator generates unique IDs for bills and items
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// uuidGenerator generates random UUIDs
type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now().UTC()
}

// ReceiptResult is the outcome of processing a receipt for a bill.
// Records holds everything the parser produced; Items holds the complete
// records that were saved to the bill.
type ReceiptResult struct {
	BillID  string           `json:"bill_id"`
	Records []parsing.Record `json:"records"`
	Items   []*Item          `json:"items"`
}

// Service handles bill operations
type Service struct {
	db          DB
	extractor   scanning.Extractor
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
	ocrTimeout  time.Duration

	// mu serializes every read-modify-write of a bill and its items
	mu sync.Mutex
	wg sync.WaitGroup
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, extractor scanning.Extractor, storage Storage) *Service {
	return NewServiceWithDeps(db, extractor, storage, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, extractor scanning.Extractor, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		extractor:   extractor,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// SetOCRTimeout bounds each text extraction call. Zero means no bound
// beyond the caller's context.
func (s *Service) SetOCRTimeout(timeout time.Duration) {
	s.ocrTimeout = timeout
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	repeatedWhitespace  = regexp.MustCompile(`\s+`)
)

// sanitizeFilename strips special characters and truncates long phone-generated names
func sanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = repeatedWhitespace.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	const maxLen = 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}
	if base == "" {
		base = "receipt"
	}
	return base + ext
}

// CreateBill saves a new bill, assigning its ID and timestamps
func (s *Service) CreateBill(bill *Bill) (*Bill, error) {
	now := s.timeSource.Now()
	created := &Bill{
		ID:        s.idGenerator.Generate(),
		Title:     strings.TrimSpace(bill.Title),
		UserID:    strings.TrimSpace(bill.UserID),
		Total:     decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.SaveBill(created); err != nil {
		return nil, fmt.Errorf("saving bill: %w", err)
	}
	return created, nil
}

// GetBill retrieves a bill by ID
func (s *Service) GetBill(id string) (*Bill, error) {
	bill, err := s.db.GetBill(id)
	if err != nil {
		return nil, fmt.Errorf("getting bill: %w", err)
	}
	return bill, nil
}

// UpdateBill replaces the editable fields of a bill
func (s *Service) UpdateBill(id string, update *Bill) (*Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bill, err := s.db.GetBill(id)
	if err != nil {
		return nil, fmt.Errorf("getting bill for update: %w", err)
	}

	bill.Title = strings.TrimSpace(update.Title)
	bill.UserID = strings.TrimSpace(update.UserID)
	bill.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveBill(bill); err != nil {
		return nil, fmt.Errorf("updating bill: %w", err)
	}
	return bill, nil
}

// ListBills returns bills ordered by creation time, optionally only those of one user
func (s *Service) ListBills(userID string) ([]*Bill, error) {
	bills, err := s.db.ListBills()
	if err != nil {
		return nil, fmt.Errorf("listing bills: %w", err)
	}

	if userID != "" {
		bills = slices.DeleteFunc(bills, func(b *Bill) bool { return b.UserID != userID })
	}
	slices.SortStableFunc(bills, func(a, b *Bill) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return bills, nil
}

// CreateItem adds an item to the end of a bill
func (s *Service) CreateItem(billID string, item *Item) (*Item, error) {
	name := strings.TrimSpace(item.Name)
	if name == "" {
		return nil, fmt.Errorf("item name is required")
	}
	quantity := item.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return nil, fmt.Errorf("item quantity must be positive")
	}
	if item.UnitPrice.IsNegative() {
		return nil, fmt.Errorf("item unit price must not be negative")
	}

	if _, err := s.db.GetBill(billID); err != nil {
		return nil, fmt.Errorf("getting bill: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.appendItems(billID, []*Item{{Name: name, Quantity: quantity, UnitPrice: item.UnitPrice}})
	if err != nil {
		return nil, err
	}
	return items[0], nil
}

// appendItems assigns IDs and positions after the bill's last item and saves
// each one. The caller must hold s.mu.
func (s *Service) appendItems(billID string, items []*Item) ([]*Item, error) {
	existing, err := s.db.ListItems(billID)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}

	now := s.timeSource.Now()
	next := 0
	for _, item := range existing {
		next = max(next, item.Position+1)
	}

	for _, item := range items {
		item.ID = s.idGenerator.Generate()
		item.BillID = billID
		item.Position = next
		item.CreatedAt = now
		next++
		if err := s.db.SaveItem(item); err != nil {
			return nil, fmt.Errorf("saving item: %w", err)
		}
	}
	return items, nil
}

// ListItems returns the items of a bill
func (s *Service) ListItems(billID string) ([]*Item, error) {
	if _, err := s.db.GetBill(billID); err != nil {
		return nil, fmt.Errorf("getting bill: %w", err)
	}
	items, err := s.db.ListItems(billID)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return items, nil
}

// extractText runs the extractor under the configured OCR timeout
func (s *Service) extractText(ctx context.Context, data []byte, contentType string) (string, error) {
	if s.ocrTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.ocrTimeout)
		defer cancel()
	}

	text, err := s.extractor.ExtractText(ctx, data, contentType)
	if err != nil {
		slog.Error("Failed to extract receipt text",
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		return "", fmt.Errorf("extracting text: %w", err)
	}
	return text, nil
}

// ScanReceipt extracts and parses a receipt without saving anything
func (s *Service) ScanReceipt(ctx context.Context, data []byte, contentType string) ([]parsing.Record, error) {
	text, err := s.extractText(ctx, data, contentType)
	if err != nil {
		return nil, err
	}
	return parsing.Parse(text), nil
}

// ProcessReceipt stores a receipt image for a bill, parses it, and adds every
// complete record to the bill as an item. Incomplete records are returned
// as-is for the caller to review.
func (s *Service) ProcessReceipt(ctx context.Context, billID string, filename string, data []byte, contentType string) (*ReceiptResult, error) {
	if _, err := s.db.GetBill(billID); err != nil {
		return nil, fmt.Errorf("getting bill: %w", err)
	}

	savedName, err := s.storage.Save(fmt.Sprintf("%s_%s", s.idGenerator.Generate(), sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	text, err := s.extractText(ctx, data, contentType)
	if err != nil {
		// Parsing never starts without text; drop the stored image too
		if delErr := s.storage.Delete(savedName); delErr != nil {
			slog.Warn("Failed to delete receipt file", "filename", savedName, "error", delErr)
		}
		return nil, err
	}

	records := parsing.Parse(text)

	pending := make([]*Item, 0, len(records))
	for _, rec := range records {
		if !rec.Complete() {
			continue
		}
		quantity := 1
		if rec.Quantity != nil {
			quantity = *rec.Quantity
		}
		pending = append(pending, &Item{
			Name:      *rec.ItemName,
			Quantity:  quantity,
			UnitPrice: *rec.Price,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Extraction ran unlocked, so the bill may have a new total by now
	bill, err := s.db.GetBill(billID)
	if err != nil {
		return nil, fmt.Errorf("getting bill: %w", err)
	}

	items, err := s.appendItems(billID, pending)
	if err != nil {
		return nil, err
	}

	previous := bill.ReceiptFilename
	bill.ReceiptFilename = savedName
	bill.ReceiptContentType = contentType
	bill.UpdatedAt = s.timeSource.Now()
	if err := s.db.SaveBill(bill); err != nil {
		return nil, fmt.Errorf("saving bill: %w", err)
	}
	if previous != "" && previous != savedName {
		if err := s.storage.Delete(previous); err != nil {
			slog.Warn("Failed to delete replaced receipt file", "filename", previous, "error", err)
		}
	}

	slog.Info("Processed receipt",
		"bill_id", billID,
		"records", len(records),
		"items_added", len(items),
	)

	return &ReceiptResult{
		BillID:  billID,
		Records: records,
		Items:   items,
	}, nil
}

// GetReceiptFile retrieves the stored receipt image of a bill
func (s *Service) GetReceiptFile(billID string) ([]byte, string, error) {
	bill, err := s.db.GetBill(billID)
	if err != nil {
		return nil, "", fmt.Errorf("getting bill: %w", err)
	}
	if bill.ReceiptFilename == "" {
		return nil, "", fmt.Errorf("%w: receipt for bill %s", ErrNotFound, billID)
	}

	data, err := s.storage.Get(bill.ReceiptFilename)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}
	return data, bill.ReceiptContentType, nil
}

// CalculateTotal sums the cost of every item and stores it on the bill
func (s *Service) CalculateTotal(billID string) (*Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bill, err := s.db.GetBill(billID)
	if err != nil {
		return nil, fmt.Errorf("getting bill: %w", err)
	}
	items, err := s.db.ListItems(billID)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}

	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Cost())
	}

	now := s.timeSource.Now()
	bill.Total = total
	bill.TotalCalculatedAt = &now
	bill.UpdatedAt = now
	if err := s.db.SaveBill(bill); err != nil {
		return nil, fmt.Errorf("saving bill total: %w", err)
	}

	slog.Info("Total calculated", "bill_id", billID, "total", total.StringFixed(2))
	return bill, nil
}

// StartTotalCalculation checks the bill exists and calculates its total in
// the background
func (s *Service) StartTotalCalculation(billID string) error {
	if _, err := s.db.GetBill(billID); err != nil {
		return fmt.Errorf("getting bill: %w", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.CalculateTotal(billID); err != nil {
			slog.Error("Failed to calculate total", "bill_id", billID, "error", err)
		}
	}()
	return nil
}

// Wait blocks until background calculations have finished
func (s *Service) Wait() {
	s.wg.Wait()
}
