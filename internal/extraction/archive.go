package extraction

import (
	"context"
	"log/slog"

	"github.com/cloo-solutions/talentlens/internal/domain"
	"github.com/cloo-solutions/talentlens/internal/service"
)

// Archiver stores the raw bytes of an upload.
type Archiver interface {
	Archive(ctx context.Context, filename, contentType string, data []byte) (string, error)
}

// Archiving keeps a copy of every upload before delegating extraction.
// Archive failures are logged and do not fail extraction.
type Archiving struct {
	next    service.TextExtractor
	archive Archiver
	logger  *slog.Logger
}

// NewArchiving wraps next.
func NewArchiving(next service.TextExtractor, archive Archiver, logger *slog.Logger) *Archiving {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiving{next: next, archive: archive, logger: logger}
}

// ExtractText implements service.TextExtractor.
func (a *Archiving) ExtractText(ctx context.Context, file domain.UploadedFile) (string, error) {
	key, err := a.archive.Archive(ctx, file.Filename, file.ContentType, file.Data)
	if err != nil {
		a.logger.WarnContext(ctx, "failed to archive upload", "filename", file.Filename, "error", err)
	} else {
		a.logger.DebugContext(ctx, "upload archived", "filename", file.Filename, "key", key)
	}

	return a.next.ExtractText(ctx, file)
}
