package convert

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// pptx conversion tries these binaries in order.
var officeBinaries = []string{"libreoffice", "soffice"}

// RasterizeDeck renders every page of a PDF into outDir as slide-N.png
// with N starting at 1 and returns the page count.
func RasterizeDeck(ctx context.Context, pdfPath, outDir string) (int, error) {
	args := []string{
		"-png",
		pdfPath,
		filepath.Join(outDir, "page"),
	}
	cmd := exec.CommandContext(ctx, "pdftoppm", args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return 0, fmt.Errorf("pdftoppm rasterize: %w: %s", err, strings.TrimSpace(string(output)))
	}

	pages, err := filepath.Glob(filepath.Join(outDir, "page-*.png"))
	if err != nil {
		return 0, fmt.Errorf("list rasterized pages: %w", err)
	}
	if len(pages) == 0 {
		return 0, fmt.Errorf("pdftoppm produced no pages for %s", pdfPath)
	}

	// pdftoppm zero-pads page numbers, so lexical order matches page order.
	sort.Strings(pages)
	for i, page := range pages {
		dest := filepath.Join(outDir, fmt.Sprintf("slide-%d.png", i+1))
		if err := os.Rename(page, dest); err != nil {
			return 0, fmt.Errorf("rename rasterized page: %w", err)
		}
	}
	return len(pages), nil
}

// ConvertDeckToPDF converts a pptx deck to PDF in outDir and returns the
// resulting file path. libreoffice is preferred, soffice is the fallback.
func ConvertDeckToPDF(ctx context.Context, deckPath, outDir string) (string, error) {
	var lastErr error
	for _, binary := range officeBinaries {
		if _, err := exec.LookPath(binary); err != nil {
			lastErr = err
			continue
		}
		args := []string{
			"--headless",
			"--convert-to", "pdf",
			"--outdir", outDir,
			deckPath,
		}
		cmd := exec.CommandContext(ctx, binary, args...)
		if output, err := cmd.CombinedOutput(); err != nil {
			lastErr = fmt.Errorf("%s convert: %w: %s", binary, err, strings.TrimSpace(string(output)))
			continue
		}

		base := strings.TrimSuffix(filepath.Base(deckPath), filepath.Ext(deckPath))
		pdfPath := filepath.Join(outDir, base+".pdf")
		if _, err := os.Stat(pdfPath); err != nil {
			lastErr = fmt.Errorf("%s produced no pdf: %w", binary, err)
			continue
		}
		return pdfPath, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no office binary available")
	}
	return "", fmt.Errorf("convert deck to pdf: %w", lastErr)
}
