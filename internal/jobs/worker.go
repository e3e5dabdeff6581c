// Package jobs runs periodic background maintenance.
package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cloo-solutions/talentlens/internal/telemetry"
)

// Task is one unit of periodic work.
type Task interface {
	Run(ctx context.Context) error
}

// Worker runs a Task once on start and then on every interval tick until its
// context ends or Stop is called. A failing run is logged and marked on its
// span; the loop keeps going.
type Worker struct {
	name     string
	task     Task
	interval time.Duration
	logger   *slog.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewWorker(name string, task Task, interval time.Duration, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		name:     name,
		task:     task,
		interval: interval,
		logger:   logger.With("component", "worker", "worker", name),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start blocks until ctx is cancelled or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("worker started", "interval", w.interval.String())
	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped", "reason", "context cancelled")
			return
		case <-w.stop:
			w.logger.Info("worker stopped", "reason", "stop requested")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	ctx, span := telemetry.StartSpan(ctx, "jobs.run", telemetry.SpanAttributes{Operation: w.name})
	defer span.End()

	started := time.Now()
	if err := w.task.Run(ctx); err != nil {
		span.SetError(err)
		w.logger.ErrorContext(ctx, "worker run failed", "error", err)
		return
	}
	w.logger.DebugContext(ctx, "worker run finished", "duration_ms", time.Since(started).Milliseconds())
}

// Stop signals the loop and waits for it to exit. Calling Stop more than
// once is safe; Start must have been called first.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.done
}
