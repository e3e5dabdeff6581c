package service

import (
	"context"
	"strings"

	"github.com/cloo-solutions/talentlens/internal/domain"
	"github.com/cloo-solutions/talentlens/internal/telemetry"
)

const (
	DefaultSearchLimit = 5
	MaxSearchLimit     = 50
)

// SearchService runs similarity queries against the chunk index.
type SearchService struct {
	index ChunkIndex
}

// NewSearchService creates a new SearchService instance
func NewSearchService(index ChunkIndex) *SearchService {
	return &SearchService{index: index}
}

// Search returns the chunks most similar to query, best first.
func (s *SearchService) Search(ctx context.Context, query string, limit int) ([]domain.ResumeChunk, error) {
	ctx, span := telemetry.StartSpan(ctx, "SearchService.Search", telemetry.SpanAttributes{Operation: "search"})
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrMissingRequiredField
	}
	if limit == 0 {
		limit = DefaultSearchLimit
	}
	if limit < 1 || limit > MaxSearchLimit {
		return nil, domain.ErrInvalidLimit
	}

	chunks, err := s.index.Query(ctx, query, limit)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if chunks == nil {
		chunks = []domain.ResumeChunk{}
	}
	return chunks, nil
}
