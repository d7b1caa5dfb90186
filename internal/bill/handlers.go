package bill

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/zombor/bill-splitter/internal/export"
	"github.com/zombor/bill-splitter/internal/parsing"
	"github.com/zombor/bill-splitter/internal/scanning"
)

const (
	// maxUploadSize fits high-resolution phone photos
	maxUploadSize = int64(50 << 20)
	maxTextSize   = int64(1 << 20)
)

// receiptExtensions maps accepted upload extensions to their content type
var receiptExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".heic": "image/heic",
	".heif": "image/heif",
	".webp": "image/webp",
	".pdf":  "application/pdf",
}

// writeJSON encodes v with the given status code
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// jsonError writes {"error": message}
func jsonError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}

// serviceError maps service errors to HTTP responses
func serviceError(w http.ResponseWriter, err error, notFound string) {
	var extErr *scanning.ExtractionError
	switch {
	case errors.Is(err, ErrNotFound):
		jsonError(w, notFound, http.StatusNotFound)
	case errors.As(err, &extErr):
		jsonError(w, extErr.Message, http.StatusBadGateway)
	case errors.Is(err, scanning.ErrUnsupportedImage):
		jsonError(w, err.Error(), http.StatusUnsupportedMediaType)
	default:
		slog.Error("Request failed", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// handleHome answers the API root
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to the Bill Splitter API!",
	})
}

// handleListBills returns all bills, filtered by the user_id query parameter
func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	bills, err := s.service.ListBills(r.URL.Query().Get("user_id"))
	if err != nil {
		serviceError(w, err, "Bill not found")
		return
	}
	writeJSON(w, http.StatusOK, bills)
}

// handleCreateBill creates a bill from a JSON body
func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	var req Bill
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	bill, err := s.service.CreateBill(&req)
	if err != nil {
		serviceError(w, err, "Bill not found")
		return
	}
	writeJSON(w, http.StatusCreated, bill)
}

// handleGetBill returns a single bill
func (s *Server) handleGetBill(w http.ResponseWriter, r *http.Request) {
	bill, err := s.service.GetBill(r.PathValue("id"))
	if err != nil {
		serviceError(w, err, "Bill not found")
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

// handleUpdateBill replaces the editable fields of a bill
func (s *Server) handleUpdateBill(w http.ResponseWriter, r *http.Request) {
	var req Bill
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	bill, err := s.service.UpdateBill(r.PathValue("id"), &req)
	if err != nil {
		serviceError(w, err, "Bill not found")
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

// handleListItems returns the items of a bill
func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ListItems(r.PathValue("id"))
	if err != nil {
		serviceError(w, err, "Bill not found")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// handleCreateItem adds an item to a bill
func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req Item
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	item, err := s.service.CreateItem(r.PathValue("id"), &req)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			jsonError(w, "Bill not found", http.StatusNotFound)
			return
		}
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// handleExportItems downloads a bill's items as CSV (default) or XLSX
func (s *Server) handleExportItems(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	var (
		write       func(io.Writer, []parsing.Record) error
		contentType string
	)
	switch format {
	case "csv":
		write, contentType = export.WriteCSV, "text/csv; charset=utf-8"
	case "xlsx":
		write, contentType = export.WriteXLSX, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		jsonError(w, "Invalid export format", http.StatusBadRequest)
		return
	}

	bill, err := s.service.GetBill(r.PathValue("id"))
	if err != nil {
		serviceError(w, err, "Bill not found")
		return
	}
	items, err := s.service.ListItems(bill.ID)
	if err != nil {
		serviceError(w, err, "Bill not found")
		return
	}

	records := make([]parsing.Record, 0, len(items))
	for _, item := range items {
		records = append(records, item.Record())
	}

	var buf bytes.Buffer
	if err := write(&buf, records); err != nil {
		serviceError(w, err, "Bill not found")
		return
	}

	fileName := url.PathEscape(sanitizeFilename(fmt.Sprintf("%s.%s", bill.Title, format)))
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''"+fileName)
	w.Write(buf.Bytes())
}

// handleCalculateTotal starts a background total calculation
func (s *Server) handleCalculateTotal(w http.ResponseWriter, r *http.Request) {
	if err := s.service.StartTotalCalculation(r.PathValue("id")); err != nil {
		serviceError(w, err, "Bill not found")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "Calculation started",
	})
}

// receiptUpload is a validated receipt file from a multipart form
type receiptUpload struct {
	filename    string
	contentType string
	data        []byte
}

// readReceiptUpload reads the "file" form field. On failure it writes the
// error response and returns false.
func readReceiptUpload(w http.ResponseWriter, r *http.Request) (*receiptUpload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			jsonError(w, "File is too large. Maximum size is 50MB. Please compress or resize your image.", http.StatusRequestEntityTooLarge)
			return nil, false
		}
		jsonError(w, "No file part in the request", http.StatusBadRequest)
		return nil, false
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "No file part in the request", http.StatusBadRequest)
		return nil, false
	}
	defer f.Close()

	if header.Filename == "" {
		jsonError(w, "No selected file", http.StatusBadRequest)
		return nil, false
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	extType, ok := receiptExtensions[ext]
	if !ok {
		jsonError(w, "Invalid file format", http.StatusBadRequest)
		return nil, false
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return nil, false
	}
	if len(data) == 0 {
		jsonError(w, "Uploaded file is empty", http.StatusBadRequest)
		return nil, false
	}

	// Browsers often send octet-stream for HEIC; the extension is more reliable then
	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = extType
	}

	return &receiptUpload{
		filename:    header.Filename,
		contentType: contentType,
		data:        data,
	}, true
}

// handleProcessReceipt parses an uploaded receipt into the bill's items
func (s *Server) handleProcessReceipt(w http.ResponseWriter, r *http.Request) {
	upload, ok := readReceiptUpload(w, r)
	if !ok {
		return
	}

	result, err := s.service.ProcessReceipt(r.Context(), r.PathValue("id"), upload.filename, upload.data, upload.contentType)
	if err != nil {
		slog.Error("Error processing receipt", "filename", upload.filename, "error", err)
		serviceError(w, err, "Bill not found")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleScanReceipt parses an uploaded receipt without saving it
func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	upload, ok := readReceiptUpload(w, r)
	if !ok {
		return
	}

	records, err := s.service.ScanReceipt(r.Context(), upload.data, upload.contentType)
	if err != nil {
		serviceError(w, err, "Not found")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// handleParseText parses OCR text sent as the request body
func (s *Server) handleParseText(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxTextSize))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			jsonError(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		slog.Error("Error reading request body", "error", err)
		jsonError(w, "Error reading request body", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, parsing.Parse(string(body)))
}

// handleGetReceiptFile returns the stored receipt image of a bill
func (s *Server) handleGetReceiptFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetReceiptFile(r.PathValue("id"))
	if err != nil {
		serviceError(w, err, "Receipt not found")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}
