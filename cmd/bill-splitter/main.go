package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/bill-splitter/internal/bill"
	"github.com/zombor/bill-splitter/internal/scanning"
	"github.com/zombor/bill-splitter/internal/social"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

// openDB opens the configured database backend
func openDB(driver, dsn string) (bill.DB, error) {
	switch driver {
	case "bolt":
		return bill.NewBoltDB(dsn)
	case "sqlite":
		return bill.NewSQLDB("sqlite3", dsn)
	case "postgres":
		return bill.NewSQLDB("pgx", dsn)
	default:
		return nil, fmt.Errorf("unknown database driver %q (valid: bolt, sqlite, postgres)", driver)
	}
}

// openSocialStore puts the friends and leaderboard data in the bill database
func openSocialStore(db bill.DB) (social.Store, error) {
	switch d := db.(type) {
	case *bill.BoltDB:
		return social.NewBoltStore(d.Bolt())
	case *bill.SQLDB:
		return social.NewSQLStore(d.SQLX())
	default:
		return nil, fmt.Errorf("no social store for %T", db)
	}
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("bill-splitter")
	var (
		port        = fs.IntLong("port", 8080, "HTTP server port")
		dbDriver    = fs.StringEnumLong("db-driver", "Database backend: bolt, sqlite, postgres", "bolt", "sqlite", "postgres")
		dbDSN       = fs.StringLong("db", "bill-splitter.db", "Database file path (bolt, sqlite) or connection string (postgres)")
		storagePath = fs.StringLong("storage", "./receipts", "Receipt image directory")
		provider    = fs.StringEnumLong("ocr-provider", "OCR provider: vision, gemini, ollama, tesseract", "vision", "gemini", "ollama", "tesseract")
		ocrTimeout  = fs.DurationLong("ocr-timeout", 2*time.Minute, "Maximum time for one text extraction (0 for none)")
		visionKey   = fs.StringLong("vision-key", "", "Google Cloud Vision API key (or set GOOGLE_API_KEY env var)")
		visionURL   = fs.StringLong("vision-endpoint", "", "Cloud Vision endpoint override")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL   = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, llava-phi3, qwen2-vl)")
		tessLangs   = fs.StringListLong("tesseract-lang", "Tesseract language (repeatable, default eng)")
		authUser    = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		logLevel    = fs.StringLong("log-level", "info", "Log level: debug, info, warn, error")
		_           = fs.StringLong("config", "", "Config file (optional)")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("BILL_SPLITTER"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid log level %q\n", *logLevel)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	// Initialize database
	slog.Info("Initializing database...", "driver", *dbDriver)
	db, err := openDB(*dbDriver, *dbDSN)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	socialStore, err := openSocialStore(db)
	if err != nil {
		slog.Error("Failed to initialize social store", "error", err)
		os.Exit(1)
	}

	// Initialize text extractor
	cfg := scanning.Config{
		Provider:           *provider,
		VisionKey:          *visionKey,
		VisionEndpoint:     *visionURL,
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
	switch {
	case cfg.Provider == "vision" && cfg.VisionKey == "":
		slog.Error("Vision API key is required. Set --vision-key flag or GOOGLE_API_KEY environment variable")
		os.Exit(1)
	case cfg.Provider == "gemini" && cfg.GeminiKey == "":
		slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
		os.Exit(1)
	}

	slog.Info("Initializing text extractor...", "provider", cfg.Provider)
	extractor, err := scanning.New(cfg)
	if err != nil {
		slog.Error("Failed to initialize text extractor", "provider", cfg.Provider, "error", err)
		os.Exit(1)
	}
	defer extractor.Close()

	// Initialize storage
	slog.Info("Initializing storage...")
	store, err := bill.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	// Initialize service
	billService := bill.NewService(db, extractor, store)
	billService.SetOCRTimeout(*ocrTimeout)

	// Initialize server
	basicAuth := bill.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := bill.NewServer(billService, basicAuth)
	social.NewHandler(socialStore).Register(server.HandleFunc)

	addr := fmt.Sprintf(":%d", *port)
	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start(addr)
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if basicAuth.Enabled() {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal or server failure
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
	case err := <-errChan:
		if err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		slog.Error("Shutdown error", "error", err)
	}
	billService.Wait()
}
