package scanning

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

const tesseractProvider = "tesseract"

// tesseractClient is the part of *gosseract.Client the extractor uses
type tesseractClient interface {
	SetImageFromBytes(data []byte) error
	SetLanguage(langs ...string) error
	Text() (string, error)
	Close() error
}

// Tesseract implements Extractor with a local Tesseract install
type Tesseract struct {
	languages []string
	newClient func() tesseractClient
}

// NewTesseract creates a Tesseract extractor. Languages default to
// Tesseract's own default ("eng") when none are given.
func NewTesseract(languages ...string) *Tesseract {
	return &Tesseract{
		languages: languages,
		newClient: func() tesseractClient { return gosseract.NewClient() },
	}
}

// ExtractText runs Tesseract over the image. Recognition itself cannot be
// interrupted, so the context is only checked before it starts.
func (t *Tesseract) ExtractText(ctx context.Context, imageData []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", extractionFailed(tesseractProvider, err)
	}

	finalImageData, _, err := prepareImageData(imageData, contentType)
	if err != nil {
		return "", err
	}

	c := t.newClient()
	defer c.Close()

	if err := c.SetImageFromBytes(finalImageData); err != nil {
		return "", extractionFailed(tesseractProvider, fmt.Errorf("set image: %w", err))
	}
	if len(t.languages) > 0 {
		if err := c.SetLanguage(t.languages...); err != nil {
			return "", extractionFailed(tesseractProvider, fmt.Errorf("set languages: %w", err))
		}
	}

	text, err := c.Text()
	if err != nil {
		return "", extractionFailed(tesseractProvider, fmt.Errorf("recognize text: %w", err))
	}
	return normalizeText(text), nil
}

// Close is a no-op; a client is created per call
func (t *Tesseract) Close() error {
	return nil
}
