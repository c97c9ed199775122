package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightlabs-ai/docinsight/internal/core/provenance"
)

type fakePageExtractor struct {
	pages []string
	err   error
}

func (f *fakePageExtractor) ExtractPages(string) ([]string, error) {
	return f.pages, f.err
}

// fakeRasterizer writes one PNG per configured page whose bytes are the page
// text, so the echoing fake OCR closes the loop.
type fakeRasterizer struct {
	pages []string
}

func (f *fakeRasterizer) RenderPages(_ context.Context, _ string, _ int, outDir string) ([]string, error) {
	paths := make([]string, len(f.pages))
	for i, p := range f.pages {
		path := filepath.Join(outDir, fmt.Sprintf("page-%d.png", i+1))
		if err := os.WriteFile(path, []byte(p), 0o600); err != nil {
			return nil, err
		}
		paths[i] = path
	}
	return paths, nil
}

func (f *fakeRasterizer) RenderPage(_ context.Context, _ string, page, _ int, outDir string) (string, error) {
	if page > len(f.pages) {
		return "", fmt.Errorf("page %d out of range", page)
	}
	path := filepath.Join(outDir, fmt.Sprintf("page-%d.png", page))
	if err := os.WriteFile(path, []byte(f.pages[page-1]), 0o600); err != nil {
		return "", err
	}
	return path, nil
}

type fakeOCR struct {
	failOn string // page text that refuses to recognize; "*" fails everything
	calls  int
}

func (f *fakeOCR) Recognize(_ context.Context, image []byte) (string, error) {
	f.calls++
	text := string(image)
	if f.failOn == "*" || (f.failOn != "" && text == f.failOn) {
		return "", errors.New("recognition failed")
	}
	return text, nil
}

type fakeConverter struct {
	called bool
}

func (f *fakeConverter) ToPDF(_ context.Context, inputPath, _ string) (string, error) {
	f.called = true
	return inputPath, nil
}

func newTestIngestor(t *testing.T, pages *fakePageExtractor, raster *fakeRasterizer, ocr *fakeOCR, conv *fakeConverter) (*Ingestor, string) {
	t.Helper()
	workDir := t.TempDir()
	return NewIngestor(pages, raster, ocr, conv, workDir, 300), workDir
}

func TestIngest_PdfPagesRoundTrip(t *testing.T) {
	ing, _ := newTestIngestor(t,
		&fakePageExtractor{pages: []string{"Alpha", "Beta", "Gamma"}},
		&fakeRasterizer{}, &fakeOCR{}, &fakeConverter{})

	res, err := ing.Ingest(context.Background(), []byte("%PDF"), "report.pdf")
	require.NoError(t, err)
	require.False(t, res.NeedsOCR)
	require.NotNil(t, res.Doc)

	assert.Equal(t, "report.pdf", res.Doc.ID)
	assert.Equal(t, "report.pdf", res.Doc.Metadata.Source)
	assert.Equal(t, []int{1, 2, 3}, provenance.Resolve(res.Doc.Text))
	assert.Contains(t, res.Doc.Text, "Alpha")
	assert.Contains(t, res.Doc.Text, "Beta")
	assert.Contains(t, res.Doc.Text, "Gamma")
}

func TestIngest_WhitespaceOnlyNeedsOCR(t *testing.T) {
	ing, _ := newTestIngestor(t,
		&fakePageExtractor{pages: []string{"   ", "\n\t", ""}},
		&fakeRasterizer{}, &fakeOCR{}, &fakeConverter{})

	res, err := ing.Ingest(context.Background(), []byte("%PDF"), "scan.pdf")
	require.NoError(t, err)
	assert.True(t, res.NeedsOCR)
	assert.Nil(t, res.Doc)
}

func TestIngestOCR_RecognizesEveryPage(t *testing.T) {
	ocr := &fakeOCR{}
	ing, _ := newTestIngestor(t,
		&fakePageExtractor{},
		&fakeRasterizer{pages: []string{"Alpha", "Beta", "Gamma"}},
		ocr, &fakeConverter{})

	doc, err := ing.IngestOCR(context.Background(), []byte("%PDF"), "scan.pdf")
	require.NoError(t, err)
	require.NotNil(t, doc)

	assert.Equal(t, 3, ocr.calls, "each page is recognized exactly once")
	assert.Equal(t, []int{1, 2, 3}, provenance.Resolve(doc.Text))
	assert.Contains(t, doc.Text, "Alpha")
	assert.Contains(t, doc.Text, "Gamma")
}

func TestIngestOCR_PartialFailureKeepsGaps(t *testing.T) {
	ing, _ := newTestIngestor(t,
		&fakePageExtractor{},
		&fakeRasterizer{pages: []string{"Alpha", "Beta", "Gamma"}},
		&fakeOCR{failOn: "Beta"}, &fakeConverter{})

	doc, err := ing.IngestOCR(context.Background(), []byte("%PDF"), "scan.pdf")
	require.NoError(t, err)

	assert.Contains(t, doc.Text, "Alpha")
	assert.NotContains(t, doc.Text, "Beta")
	assert.Contains(t, doc.Text, "Gamma")
	// The failed page keeps its sentinel so page numbering stays aligned.
	assert.Equal(t, []int{1, 2, 3}, provenance.Resolve(doc.Text))
}

func TestIngestOCR_AllPagesFail(t *testing.T) {
	ing, _ := newTestIngestor(t,
		&fakePageExtractor{},
		&fakeRasterizer{pages: []string{"Alpha", "Beta"}},
		&fakeOCR{failOn: "*"}, &fakeConverter{})

	_, err := ing.IngestOCR(context.Background(), []byte("%PDF"), "scan.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no page recognized")
}

func TestIngest_TxtGoesThroughConverter(t *testing.T) {
	conv := &fakeConverter{}
	ing, _ := newTestIngestor(t,
		&fakePageExtractor{pages: []string{"Notes content"}},
		&fakeRasterizer{}, &fakeOCR{}, conv)

	res, err := ing.Ingest(context.Background(), []byte("plain text"), "notes.txt")
	require.NoError(t, err)
	assert.True(t, conv.called)
	assert.False(t, res.NeedsOCR)
}

func TestIngest_PdfSkipsConverter(t *testing.T) {
	conv := &fakeConverter{}
	ing, _ := newTestIngestor(t,
		&fakePageExtractor{pages: []string{"content"}},
		&fakeRasterizer{}, &fakeOCR{}, conv)

	_, err := ing.Ingest(context.Background(), []byte("%PDF"), "direct.pdf")
	require.NoError(t, err)
	assert.False(t, conv.called)
}

func TestIngest_UnsupportedExtension(t *testing.T) {
	ing, _ := newTestIngestor(t,
		&fakePageExtractor{}, &fakeRasterizer{}, &fakeOCR{}, &fakeConverter{})

	_, err := ing.Ingest(context.Background(), []byte("GIF89a"), "image.gif")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestIngest_WorkDirCleanedUp(t *testing.T) {
	ing, workDir := newTestIngestor(t,
		&fakePageExtractor{pages: []string{"content"}},
		&fakeRasterizer{pages: []string{"content"}}, &fakeOCR{}, &fakeConverter{})
	ctx := context.Background()

	_, err := ing.Ingest(ctx, []byte("%PDF"), "a.pdf")
	require.NoError(t, err)
	_, err = ing.IngestOCR(ctx, []byte("%PDF"), "a.pdf")
	require.NoError(t, err)

	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "every scratch directory is removed on exit")
}

func TestIngest_ExtractorErrorPropagates(t *testing.T) {
	ing, _ := newTestIngestor(t,
		&fakePageExtractor{err: errors.New("corrupt xref")},
		&fakeRasterizer{}, &fakeOCR{}, &fakeConverter{})

	_, err := ing.Ingest(context.Background(), []byte("%PDF"), "broken.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt xref")
}

func TestPageImage_RendersRequestedPage(t *testing.T) {
	ing, _ := newTestIngestor(t,
		&fakePageExtractor{},
		&fakeRasterizer{pages: []string{"one", "two", "three"}},
		&fakeOCR{}, &fakeConverter{})

	img, err := ing.PageImage(context.Background(), []byte("%PDF"), "doc.pdf", 2)
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), img)

	_, err = ing.PageImage(context.Background(), []byte("%PDF"), "doc.pdf", 0)
	require.Error(t, err)
}
