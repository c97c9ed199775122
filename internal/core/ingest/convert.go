package ingest

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Converter normalizes other document formats into PDF so the rest of the
// ingestion path only ever deals with one format.
type Converter interface {
	ToPDF(ctx context.Context, inputPath, outDir string) (string, error)
}

// SofficeConverter shells out to LibreOffice in headless mode. A missing or
// failing soffice binary surfaces as a per-file ingestion failure, never as
// a batch abort.
type SofficeConverter struct{}

func NewSofficeConverter() *SofficeConverter {
	return &SofficeConverter{}
}

func (c *SofficeConverter) ToPDF(ctx context.Context, inputPath, outDir string) (string, error) {
	cmd := exec.CommandContext(ctx, "soffice", "--headless", "--convert-to", "pdf", "--outdir", outDir, inputPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("soffice convert %s: %w: %s", filepath.Base(inputPath), err, out)
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	pdfPath := filepath.Join(outDir, base+".pdf")
	if _, err := os.Stat(pdfPath); err != nil {
		return "", fmt.Errorf("soffice convert %s: no output: %w", filepath.Base(inputPath), err)
	}
	return pdfPath, nil
}
