package extraction

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloo-solutions/talentlens/internal/domain"
)

const DefaultOCRLanguage = "eng"

// Image runs tesseract over image uploads.
type Image struct {
	runner    CommandRunner
	tesseract string
	language  string
}

// NewImage creates an image extractor. Empty values take defaults.
func NewImage(runner CommandRunner, tesseractBin, language string) *Image {
	if runner == nil {
		runner = ExecRunner{}
	}
	if tesseractBin == "" {
		tesseractBin = "tesseract"
	}
	if language == "" {
		language = DefaultOCRLanguage
	}
	return &Image{runner: runner, tesseract: tesseractBin, language: language}
}

func (x *Image) extract(ctx context.Context, file domain.UploadedFile) (string, error) {
	dir, err := os.MkdirTemp("", "talentlens-img-*")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "source"+strings.ToLower(filepath.Ext(file.Filename)))
	if err := os.WriteFile(path, file.Data, 0o600); err != nil {
		return "", fmt.Errorf("write temp image: %w", err)
	}

	return x.ocrFile(ctx, path)
}

// ocrFile runs tesseract on an image already on disk.
func (x *Image) ocrFile(ctx context.Context, path string) (string, error) {
	out, err := x.runner.Run(ctx, x.tesseract, path, "stdout", "-l", x.language)
	if err != nil {
		return "", fmt.Errorf("tesseract failed: %w", err)
	}
	return string(out), nil
}
