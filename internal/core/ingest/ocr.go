package ingest

import (
	"bytes"
	"context"
	"fmt"

	"code.sajari.com/docconv"

	"github.com/insightlabs-ai/docinsight/internal/core"
)

var _ core.OCRProvider = (*DocconvOCR)(nil)

// DocconvOCR recognizes text in page images through docconv, which runs
// tesseract under the hood for image input.
type DocconvOCR struct{}

func NewDocconvOCR() *DocconvOCR {
	return &DocconvOCR{}
}

func (o *DocconvOCR) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	res, err := docconv.Convert(bytes.NewReader(image), "image/png", false)
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}
	return res.Body, nil
}
