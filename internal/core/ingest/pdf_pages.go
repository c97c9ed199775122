package ingest

import (
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PageExtractor pulls the text of every page of a PDF, in page order.
type PageExtractor interface {
	ExtractPages(path string) ([]string, error)
}

// PdfPageExtractor reads PDF text natively, one page at a time, so page
// boundaries survive into the extracted output.
type PdfPageExtractor struct{}

func NewPdfPageExtractor() *PdfPageExtractor {
	return &PdfPageExtractor{}
}

func (e *PdfPageExtractor) ExtractPages(path string) ([]string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	total := r.NumPage()
	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			// A single unreadable page becomes an empty page; the
			// whitespace check upstream decides whether the whole
			// file needs the OCR path.
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}
