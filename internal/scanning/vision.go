package scanning

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

const visionProvider = "vision"

// Vision implements Extractor using Google Cloud Vision text detection
type Vision struct {
	service *vision.Service
}

// NewVision creates a Cloud Vision extractor authenticated with an API key.
// Extra options are appended after the key, e.g. a custom endpoint.
func NewVision(apiKey string, opts ...option.ClientOption) (*Vision, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("vision api key is required")
	}

	clientOpts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := vision.NewService(context.Background(), clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating vision client: %w", err)
	}

	return &Vision{service: service}, nil
}

// ExtractText runs TEXT_DETECTION and returns the full-text annotation
func (v *Vision) ExtractText(ctx context.Context, imageData []byte, contentType string) (string, error) {
	finalImageData, _, err := prepareImageData(imageData, contentType)
	if err != nil {
		return "", err
	}

	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{
			{
				Image: &vision.Image{
					Content: base64.StdEncoding.EncodeToString(finalImageData),
				},
				Features: []*vision.Feature{
					{Type: "TEXT_DETECTION"},
				},
			},
		},
	}

	resp, err := v.service.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return "", extractionFailed(visionProvider, fmt.Errorf("calling vision API: %w", err))
	}

	if len(resp.Responses) == 0 {
		return "", &ExtractionError{
			Provider: visionProvider,
			Message:  "no response from vision",
			Err:      errors.New("empty batch response"),
		}
	}

	annotation := resp.Responses[0]
	if annotation.Error != nil && annotation.Error.Message != "" {
		return "", &ExtractionError{
			Provider: visionProvider,
			Message:  annotation.Error.Message,
			Err:      fmt.Errorf("vision status %d", annotation.Error.Code),
		}
	}

	// The first annotation covers the whole image; the rest are single words
	if len(annotation.TextAnnotations) == 0 {
		return "", nil
	}
	return normalizeText(annotation.TextAnnotations[0].Description), nil
}

// Close is a no-op; the REST client holds no connections of its own
func (v *Vision) Close() error {
	return nil
}
