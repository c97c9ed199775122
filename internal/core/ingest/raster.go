package ingest

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
)

// Rasterizer renders PDF pages to PNG images inside outDir. Implementations
// shell out to an external tool; outDir is a scoped work directory the
// caller removes afterwards.
type Rasterizer interface {
	RenderPages(ctx context.Context, pdfPath string, dpi int, outDir string) ([]string, error)
	RenderPage(ctx context.Context, pdfPath string, page, dpi int, outDir string) (string, error)
}

// PdftoppmRasterizer drives poppler's pdftoppm.
type PdftoppmRasterizer struct{}

func NewPdftoppmRasterizer() *PdftoppmRasterizer {
	return &PdftoppmRasterizer{}
}

func (r *PdftoppmRasterizer) RenderPages(ctx context.Context, pdfPath string, dpi int, outDir string) ([]string, error) {
	prefix := filepath.Join(outDir, "page")
	cmd := exec.CommandContext(ctx, "pdftoppm", "-png", "-r", fmt.Sprint(dpi), pdfPath, prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, out)
	}

	imgs, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, err
	}
	if len(imgs) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no pages for %s", pdfPath)
	}
	// pdftoppm zero-pads page numbers, so lexical order is page order.
	sort.Strings(imgs)
	return imgs, nil
}

func (r *PdftoppmRasterizer) RenderPage(ctx context.Context, pdfPath string, page, dpi int, outDir string) (string, error) {
	prefix := filepath.Join(outDir, "page")
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png", "-r", fmt.Sprint(dpi),
		"-f", fmt.Sprint(page), "-l", fmt.Sprint(page),
		pdfPath, prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("pdftoppm page %d: %w: %s", page, err, out)
	}

	imgs, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return "", err
	}
	if len(imgs) != 1 {
		return "", fmt.Errorf("pdftoppm page %d: expected one image, got %d", page, len(imgs))
	}
	return imgs[0], nil
}
