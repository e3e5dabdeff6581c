package extraction

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/cloo-solutions/talentlens/internal/domain"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/sync/errgroup"
)

const (
	sourcePDF     = "source.pdf"
	pagePrefix    = "page"
	renderDPI     = 300
	maxOCRWorkers = 4
)

// PageCounter returns the number of pages in a PDF.
type PageCounter func(r io.ReadSeeker) (int, error)

// PDFConfig configures the PDF extractor.
type PDFConfig struct {
	PdfToTextBin string
	PdfToPpmBin  string
	// OCR handles scanned PDFs with no text layer. Nil disables the fallback.
	OCR *Image
}

// PDF extracts the text layer with pdftotext and falls back to rendering
// each page and running OCR when the layer is empty.
type PDF struct {
	runner     CommandRunner
	pdftotext  string
	pdftoppm   string
	ocr        *Image
	countPages PageCounter
}

// NewPDF creates a PDF extractor.
func NewPDF(runner CommandRunner, cfg PDFConfig) *PDF {
	if runner == nil {
		runner = ExecRunner{}
	}
	if cfg.PdfToTextBin == "" {
		cfg.PdfToTextBin = "pdftotext"
	}
	if cfg.PdfToPpmBin == "" {
		cfg.PdfToPpmBin = "pdftoppm"
	}
	return &PDF{
		runner:     runner,
		pdftotext:  cfg.PdfToTextBin,
		pdftoppm:   cfg.PdfToPpmBin,
		ocr:        cfg.OCR,
		countPages: pdfcpuPageCount,
	}
}

func pdfcpuPageCount(r io.ReadSeeker) (int, error) {
	return api.PageCount(r, nil)
}

func (x *PDF) extract(ctx context.Context, file domain.UploadedFile) (string, error) {
	pages, err := x.countPages(bytes.NewReader(file.Data))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPDF, err)
	}
	if pages == 0 {
		return "", nil
	}

	dir, err := os.MkdirTemp("", "talentlens-pdf-*")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, sourcePDF)
	if err := os.WriteFile(path, file.Data, 0o600); err != nil {
		return "", fmt.Errorf("write temp pdf: %w", err)
	}

	out, err := x.runner.Run(ctx, x.pdftotext, "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext failed: %w", err)
	}

	text := string(out)
	if strings.TrimSpace(text) != "" || x.ocr == nil {
		return text, nil
	}

	return x.ocrPages(ctx, dir, path, pages)
}

// ocrPages renders every page to PNG and runs OCR on each, joining the
// results in page order.
func (x *PDF) ocrPages(ctx context.Context, dir, path string, pageCount int) (string, error) {
	prefix := filepath.Join(dir, pagePrefix)
	if _, err := x.runner.Run(ctx, x.pdftoppm, "-r", strconv.Itoa(renderDPI), "-png", path, prefix); err != nil {
		return "", fmt.Errorf("pdftoppm failed: %w", err)
	}

	images, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return "", fmt.Errorf("list rendered pages: %w", err)
	}
	sort.Strings(images)

	texts := make([]string, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ocrWorkerCount(pageCount))

	for i, img := range images {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			text, err := x.ocr.ocrFile(gctx, img)
			if err != nil {
				return fmt.Errorf("page %d: %w", i+1, err)
			}
			texts[i] = strings.TrimSpace(text)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", err
	}

	return strings.Join(texts, "\n"), nil
}

func ocrWorkerCount(pageCount int) int {
	return max(min(runtime.NumCPU(), pageCount, maxOCRWorkers), 1)
}
