package ingest

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/insightlabs-ai/docinsight/internal/core"
	"github.com/insightlabs-ai/docinsight/internal/core/provenance"
	"github.com/insightlabs-ai/docinsight/internal/models"
)

// ExtractResult is the outcome of text extraction. NeedsOCR set means the
// file produced no usable text and the caller should run the OCR path; it is
// an expected condition, not an error.
type ExtractResult struct {
	Doc      *models.Document
	NeedsOCR bool
}

// Ingestor turns raw uploaded bytes into page-tagged documents. PDF files go
// through per-page text extraction; DOCX and TXT are normalized to PDF first;
// scanned files fall back to rasterize-and-recognize. All intermediate files
// live in a work directory scoped to one call and removed on every exit path.
type Ingestor struct {
	pages   PageExtractor
	raster  Rasterizer
	ocr     core.OCRProvider
	conv    Converter
	workDir string
	dpi     int
}

func NewIngestor(pages PageExtractor, raster Rasterizer, ocr core.OCRProvider, conv Converter, workDir string, dpi int) *Ingestor {
	if dpi < 300 {
		dpi = 300
	}
	return &Ingestor{pages: pages, raster: raster, ocr: ocr, conv: conv, workDir: workDir, dpi: dpi}
}

// Ingest extracts text from one uploaded file. The document id is the
// filename, which makes re-uploads of the same file land on the same ledger
// entry downstream.
func (ing *Ingestor) Ingest(ctx context.Context, data []byte, filename string) (*ExtractResult, error) {
	work, cleanup, err := ing.scratch()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	pdfPath, err := ing.materialize(ctx, work, data, filename)
	if err != nil {
		return nil, err
	}

	pages, err := ing.pages.ExtractPages(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", filename, err)
	}

	if strings.TrimSpace(strings.Join(pages, "")) == "" {
		return &ExtractResult{NeedsOCR: true}, nil
	}
	return &ExtractResult{Doc: pageTagged(filename, pages)}, nil
}

// IngestOCR runs the recognition path: rasterize every page and OCR each
// image, with the same sentinel convention as direct extraction. A page
// that fails recognition is kept as a gap and logged; only a file where no
// page recognizes at all is an error.
func (ing *Ingestor) IngestOCR(ctx context.Context, data []byte, filename string) (*models.Document, error) {
	work, cleanup, err := ing.scratch()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	pdfPath, err := ing.materialize(ctx, work, data, filename)
	if err != nil {
		return nil, err
	}

	imgs, err := ing.raster.RenderPages(ctx, pdfPath, ing.dpi, work)
	if err != nil {
		return nil, fmt.Errorf("rasterize %s: %w", filename, err)
	}

	pages := make([]string, len(imgs))
	recognized := 0
	for i, imgPath := range imgs {
		img, err := os.ReadFile(imgPath)
		if err != nil {
			return nil, fmt.Errorf("read page image: %w", err)
		}
		text, err := ing.ocr.Recognize(ctx, img)
		if err != nil {
			log.Printf("ingest: ocr gap on %s page %d: %v", filename, i+1, err)
			continue
		}
		pages[i] = text
		recognized++
	}
	if recognized == 0 {
		return nil, fmt.Errorf("ocr %s: no page recognized", filename)
	}
	return pageTagged(filename, pages), nil
}

// PageImage renders one page of an uploaded file to PNG for citation view.
func (ing *Ingestor) PageImage(ctx context.Context, data []byte, filename string, page int) ([]byte, error) {
	if page < 1 {
		return nil, fmt.Errorf("invalid page %d", page)
	}
	work, cleanup, err := ing.scratch()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	pdfPath, err := ing.materialize(ctx, work, data, filename)
	if err != nil {
		return nil, err
	}
	imgPath, err := ing.raster.RenderPage(ctx, pdfPath, page, ing.dpi, work)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(imgPath)
}

// scratch creates the per-call work directory and its cleanup.
func (ing *Ingestor) scratch() (string, func(), error) {
	if ing.workDir != "" {
		if err := os.MkdirAll(ing.workDir, 0o755); err != nil {
			return "", nil, fmt.Errorf("work dir: %w", err)
		}
	}
	work, err := os.MkdirTemp(ing.workDir, "ingest-*")
	if err != nil {
		return "", nil, fmt.Errorf("work dir: %w", err)
	}
	return work, func() { _ = os.RemoveAll(work) }, nil
}

// materialize writes the upload into the work dir and normalizes it to PDF.
func (ing *Ingestor) materialize(ctx context.Context, work string, data []byte, filename string) (string, error) {
	name := filepath.Base(filename)
	path := filepath.Join(work, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return path, nil
	case ".docx", ".doc", ".txt":
		return ing.conv.ToPDF(ctx, path, work)
	default:
		return "", fmt.Errorf("unsupported file type: %s", name)
	}
}

// pageTagged builds the whole-file document with sentinel-wrapped pages.
func pageTagged(filename string, pages []string) *models.Document {
	return &models.Document{
		ID:       filename,
		Text:     provenance.JoinPages(pages),
		Metadata: models.Metadata{Source: filename},
	}
}
