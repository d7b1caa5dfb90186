package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/bill-splitter/internal/export"
	"github.com/zombor/bill-splitter/internal/parsing"
	"github.com/zombor/bill-splitter/internal/scanning"
)

// printRecords writes records as an aligned table
func printRecords(w io.Writer, records []parsing.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(export.Header, "\t"))
	for _, rec := range records {
		name, quantity, price := "-", "-", "-"
		if rec.ItemName != nil {
			name = *rec.ItemName
		}
		if rec.Quantity != nil {
			quantity = strconv.Itoa(*rec.Quantity)
		}
		if rec.Price != nil {
			price = rec.Price.StringFixed(2)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, quantity, price)
	}
	return tw.Flush()
}

// writeOutput saves records as CSV or XLSX depending on the file extension
func writeOutput(path string, records []parsing.Record) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return export.WriteCSV(f, records)
	}
	return export.WriteXLSX(f, records)
}

// contentTypeFor guesses the content type from the extension, then the bytes
func contentTypeFor(path string, data []byte) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}

func main() {
	fs := ff.NewFlagSet("receipt-reader")
	var (
		provider    = fs.StringEnumLong("ocr-provider", "OCR provider: vision, gemini, ollama, tesseract", "vision", "gemini", "ollama", "tesseract")
		timeout     = fs.DurationLong("timeout", 2*time.Minute, "Maximum time for text extraction (0 for none)")
		visionKey   = fs.StringLong("vision-key", "", "Google Cloud Vision API key (or set GOOGLE_API_KEY env var)")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL   = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel = fs.StringLong("ollama-model", "llava", "Ollama model name")
		tessLangs   = fs.StringListLong("tesseract-lang", "Tesseract language (repeatable, default eng)")
		output      = fs.StringLong("output", "receipt_output.xlsx", "Output file (.xlsx or .csv)")
		textOnly    = fs.BoolLong("text", "Treat the input as OCR text instead of an image")
		verbose     = fs.BoolLong("verbose", "Log debug output")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPT_READER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	args := fs.GetArgs()
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintln(os.Stderr, "usage: receipt-reader [flags] <image_path>")
		os.Exit(1)
	}
	inputPath := args[0]

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	data, err := os.ReadFile(inputPath)
	if err != nil {
		slog.Error("Failed to read input", "path", inputPath, "error", err)
		os.Exit(1)
	}

	var text string
	if *textOnly {
		text = string(data)
	} else {
		cfg := scanning.Config{
			Provider:           *provider,
			VisionKey:          *visionKey,
			GeminiKey:          *geminiKey,
			GeminiModel:        *geminiModel,
			OllamaURL:          *ollamaURL,
			OllamaModel:        *ollamaModel,
			TesseractLanguages: *tessLangs,
		}
		if cfg.VisionKey == "" {
			cfg.VisionKey = os.Getenv("GOOGLE_API_KEY")
		}
		if cfg.GeminiKey == "" {
			cfg.GeminiKey = os.Getenv("GEMINI_API_KEY")
		}

		extractor, err := scanning.New(cfg)
		if err != nil {
			slog.Error("Failed to initialize text extractor", "provider", cfg.Provider, "error", err)
			os.Exit(1)
		}
		defer extractor.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if *timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, *timeout)
			defer cancel()
		}

		text, err = extractor.ExtractText(ctx, data, contentTypeFor(inputPath, data))
		if err != nil {
			var extErr *scanning.ExtractionError
			if errors.As(err, &extErr) {
				fmt.Fprintf(os.Stderr, "error: %s: %s\n", extErr.Provider, extErr.Message)
			} else {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
			os.Exit(1)
		}
	}

	records := parsing.Parse(text)

	if err := writeOutput(*output, records); err != nil {
		slog.Error("Failed to write output", "path", *output, "error", err)
		os.Exit(1)
	}
	fmt.Printf("Receipt data saved to %s\n", *output)

	fmt.Println("Parsed Receipt Data:")
	if err := printRecords(os.Stdout, records); err != nil {
		slog.Error("Failed to print records", "error", err)
		os.Exit(1)
	}
}
