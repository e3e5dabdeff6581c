package service

import (
	"context"
	"time"

	"github.com/cloo-solutions/talentlens/internal/domain"
	"github.com/cloo-solutions/talentlens/internal/pagination"
	"github.com/google/uuid"
)

// TextExtractor turns an uploaded binary file into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, file domain.UploadedFile) (string, error)
}

// Embedder produces dense vectors for chunk text and search queries.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ChunkIndex stores chunks for similarity retrieval.
type ChunkIndex interface {
	Upsert(ctx context.Context, chunks []domain.ResumeChunk) error
	Query(ctx context.Context, text string, limit int) ([]domain.ResumeChunk, error)
}

// ReasoningClient summarizes resumes and answers hiring queries.
type ReasoningClient interface {
	Summarize(ctx context.Context, doc *domain.ResumeDocument) (*domain.ResumeSummary, error)
	Answer(ctx context.Context, query string, docs []*domain.ResumeDocument) (*domain.AnswerPayload, error)
}

// AuditRepository persists one audit entry per processed request.
type AuditRepository interface {
	Save(ctx context.Context, entry *domain.AuditLog) error
	List(ctx context.Context, cursor *pagination.Cursor, limit int) ([]*domain.AuditLog, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Clock supplies timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// RandomUUIDGenerator generates version 4 UUIDs.
type RandomUUIDGenerator struct{}

// NewString generates a new UUID string
func (RandomUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// TimeOrderedUUIDGenerator generates version 7 UUIDs, which sort by
// creation time.
type TimeOrderedUUIDGenerator struct{}

// NewString generates a new UUIDv7 string, falling back to v4 if the
// system random source fails.
func (TimeOrderedUUIDGenerator) NewString() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
