package jobs

import (
	"context"
	"log/slog"
	"time"
)

// AuditPurger removes audit entries older than a maximum age.
type AuditPurger interface {
	PurgeOlderThan(ctx context.Context, maxAge time.Duration) (int64, error)
}

// RetentionProcessor deletes expired audit entries on every tick.
type RetentionProcessor struct {
	purger AuditPurger
	maxAge time.Duration
	logger *slog.Logger
}

// NewRetentionProcessor creates a new RetentionProcessor instance
func NewRetentionProcessor(purger AuditPurger, maxAge time.Duration, logger *slog.Logger) *RetentionProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetentionProcessor{purger: purger, maxAge: maxAge, logger: logger}
}

// Run implements Task.
func (p *RetentionProcessor) Run(ctx context.Context) error {
	n, err := p.purger.PurgeOlderThan(ctx, p.maxAge)
	if err != nil {
		return err
	}
	if n > 0 {
		p.logger.InfoContext(ctx, "purged expired audit entries", "count", n, "max_age", p.maxAge.String())
	}
	return nil
}
