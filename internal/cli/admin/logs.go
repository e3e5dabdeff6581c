package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/cloo-solutions/talentlens/internal/api/handlers"
	"github.com/cloo-solutions/talentlens/internal/config"
	"github.com/cloo-solutions/talentlens/internal/logging"
	"github.com/cloo-solutions/talentlens/internal/service"
	"github.com/spf13/cobra"
)

// LogsCmd returns the logs command, which reads the audit store directly.
func LogsCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print audit log entries as JSON, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAuditService(cmd, func(ctx context.Context, svc *service.AuditService) error {
				return printLogs(ctx, cmd.OutOrStdout(), svc, limit, cursor)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", service.DefaultLogLimit, "Maximum number of entries")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from a previous page")
	cmd.AddCommand(purgeCmd())

	return cmd
}

func purgeCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete audit entries older than the given age",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			return withAuditService(cmd, func(ctx context.Context, svc *service.AuditService) error {
				n, err := svc.PurgeOlderThan(ctx, olderThan)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d entries\n", n)
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Maximum age to keep, e.g. 720h")
	_ = cmd.MarkFlagRequired("older-than")

	return cmd
}

func withAuditService(cmd *cobra.Command, fn func(ctx context.Context, svc *service.AuditService) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat, cfg.Debug)

	// Only the audit sink is needed; skip Postgres when it holds nothing else.
	if cfg.AuditBackend == config.AuditBackendSQLite {
		cfg.VectorBackend = config.VectorBackendMemory
	}

	ctx := cmd.Context()
	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	return fn(ctx, service.NewAuditService(b.audit, service.SystemClock{}))
}

func printLogs(ctx context.Context, out io.Writer, lister handlers.AuditLister, limit int, cursor string) error {
	page, err := lister.ListLogs(ctx, service.ListLogsInput{Cursor: cursor, Limit: limit})
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(handlers.NewListLogsResponse(page), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal logs: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}
