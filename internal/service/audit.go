package service

import (
	"context"
	"time"

	"github.com/cloo-solutions/talentlens/internal/domain"
	"github.com/cloo-solutions/talentlens/internal/pagination"
	"github.com/cloo-solutions/talentlens/internal/telemetry"
)

const (
	DefaultLogLimit = 20
	MaxLogLimit     = 100
)

// ListLogsInput selects a page of audit entries.
type ListLogsInput struct {
	Cursor string
	Limit  int
}

// ListLogsOutput is one page of audit entries, newest first.
type ListLogsOutput = pagination.PageResult[*domain.AuditLog]

// AuditService reads and prunes the audit trail.
type AuditService struct {
	repo  AuditRepository
	clock Clock
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo AuditRepository, clock Clock) *AuditService {
	return &AuditService{repo: repo, clock: clock}
}

// ListLogs returns the most recent audit entries.
func (s *AuditService) ListLogs(ctx context.Context, input ListLogsInput) (*ListLogsOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "AuditService.ListLogs", telemetry.SpanAttributes{Operation: "list_logs"})
	defer span.End()

	limit := input.Limit
	if limit == 0 {
		limit = DefaultLogLimit
	}
	if limit < 1 || limit > MaxLogLimit {
		return nil, domain.ErrInvalidLimit
	}

	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.ErrInvalidCursor
	}

	entries, err := s.repo.List(ctx, cursor, limit+1)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	page := pagination.Page(entries, limit,
		func(e *domain.AuditLog) string { return e.ID },
		func(e *domain.AuditLog) time.Time { return e.Timestamp },
	)
	return &page, nil
}

// PurgeOlderThan deletes entries older than maxAge and reports how many
// were removed.
func (s *AuditService) PurgeOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "AuditService.PurgeOlderThan", telemetry.SpanAttributes{Operation: "purge"})
	defer span.End()

	n, err := s.repo.DeleteBefore(ctx, s.clock.Now().Add(-maxAge))
	if err != nil {
		span.SetError(err)
		return 0, err
	}
	return n, nil
}
