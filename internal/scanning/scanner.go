package scanning

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/option"
)

// ErrUnsupportedImage is returned when receipt bytes cannot be decoded as an image
var ErrUnsupportedImage = errors.New("unsupported image format")

// Extractor turns a receipt image into the raw text printed on it
type Extractor interface {
	// ExtractText returns all recognized text, one printed line per text line.
	// The context bounds the call; extractors impose no timeout of their own.
	ExtractText(ctx context.Context, imageData []byte, contentType string) (string, error)
	// Close releases the extractor's resources
	Close() error
}

// ExtractionError reports a failure from the OCR provider.
// Error returns the provider's message unchanged.
type ExtractionError struct {
	Provider string
	Message  string
	Err      error
}

func (e *ExtractionError) Error() string {
	return e.Message
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

func extractionFailed(provider string, err error) *ExtractionError {
	return &ExtractionError{Provider: provider, Message: err.Error(), Err: err}
}

// Config selects and configures an Extractor
type Config struct {
	Provider           string
	GeminiKey          string
	GeminiModel        string
	OllamaURL          string
	OllamaModel        string
	VisionKey          string
	VisionEndpoint     string
	TesseractLanguages []string
}

// New builds the Extractor named by cfg.Provider
func New(cfg Config) (Extractor, error) {
	switch cfg.Provider {
	case "vision":
		var opts []option.ClientOption
		if cfg.VisionEndpoint != "" {
			opts = append(opts, option.WithEndpoint(cfg.VisionEndpoint))
		}
		return NewVision(cfg.VisionKey, opts...)
	case "gemini":
		return NewGemini(cfg.GeminiKey, cfg.GeminiModel)
	case "ollama":
		return NewOllama(cfg.OllamaURL, cfg.OllamaModel)
	case "tesseract":
		return NewTesseract(cfg.TesseractLanguages...), nil
	default:
		return nil, fmt.Errorf("unknown OCR provider %q (valid: vision, gemini, ollama, tesseract)", cfg.Provider)
	}
}
