package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cloo-solutions/talentlens/internal/domain"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrToolNotFound      = errors.New("extraction tool not found in PATH")
	ErrInvalidPDF        = errors.New("invalid PDF")
)

// Kind is the extraction path chosen for a file.
type Kind string

const (
	KindPDF     Kind = "pdf"
	KindImage   Kind = "image"
	KindText    Kind = "text"
	KindUnknown Kind = ""
)

var imageExtensions = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "tif": true, "tiff": true,
	"bmp": true, "gif": true, "webp": true, "pnm": true,
}

var textExtensions = map[string]bool{
	"txt": true, "text": true, "md": true, "markdown": true,
}

// Detect picks the extraction path from the content type, then the
// extension, then the leading bytes.
func Detect(file domain.UploadedFile) Kind {
	ct := strings.ToLower(strings.TrimSpace(file.ContentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}

	switch {
	case ct == "application/pdf":
		return KindPDF
	case strings.HasPrefix(ct, "image/"):
		return KindImage
	case strings.HasPrefix(ct, "text/"):
		return KindText
	}

	ext := file.Extension()
	switch {
	case ext == "pdf":
		return KindPDF
	case imageExtensions[ext]:
		return KindImage
	case textExtensions[ext]:
		return KindText
	}

	if len(file.Data) == 0 {
		return KindUnknown
	}
	sniffed := http.DetectContentType(file.Data)
	switch {
	case sniffed == "application/pdf":
		return KindPDF
	case strings.HasPrefix(sniffed, "image/"):
		return KindImage
	case strings.HasPrefix(sniffed, "text/plain"):
		return KindText
	}
	return KindUnknown
}

type kindExtractor interface {
	extract(ctx context.Context, file domain.UploadedFile) (string, error)
}

// Router dispatches each file to the PDF, image or text extractor. Every
// error it returns is an EXTRACTION_FAILED domain error.
type Router struct {
	pdf    kindExtractor
	image  kindExtractor
	text   kindExtractor
	logger *slog.Logger
}

// NewRouter wires the three extractors.
func NewRouter(pdf *PDF, image *Image, text *PlainText, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{pdf: pdf, text: text, logger: logger}
	// A nil image extractor means OCR is unavailable.
	if image != nil {
		r.image = image
	}
	return r
}

// ExtractText implements service.TextExtractor.
func (r *Router) ExtractText(ctx context.Context, file domain.UploadedFile) (string, error) {
	kind := Detect(file)

	var ex kindExtractor
	switch kind {
	case KindPDF:
		ex = r.pdf
	case KindImage:
		ex = r.image
	case KindText:
		ex = r.text
	default:
		return "", domain.ExtractionFailure(ErrUnsupportedFormat)
	}
	if ex == nil {
		return "", domain.ExtractionFailure(fmt.Errorf("%w: no %s extractor configured", ErrToolNotFound, kind))
	}

	text, err := ex.extract(ctx, file)
	if err != nil {
		return "", domain.ExtractionFailure(err)
	}

	r.logger.InfoContext(ctx, "text extracted",
		"filename", file.Filename,
		"kind", string(kind),
		"length", len([]rune(text)),
	)
	return text, nil
}
