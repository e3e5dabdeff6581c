package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/talentlens/internal/api/handlers"
	"github.com/cloo-solutions/talentlens/internal/config"
	"github.com/cloo-solutions/talentlens/internal/jobs"
	"github.com/cloo-solutions/talentlens/internal/logging"
	"github.com/cloo-solutions/talentlens/internal/server"
	"github.com/cloo-solutions/talentlens/internal/service"
	"github.com/cloo-solutions/talentlens/internal/telemetry"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the talentlens API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides TALENTLENS_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().String("migrations", defaultMigrationsDir, "Directory holding the migration files")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat, cfg.Debug)

	sampleRate := 0.1
	if cfg.Environment == "development" {
		sampleRate = 1.0
	}
	flush := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: sampleRate,
		Debug:            cfg.Debug,
	}, logger)
	defer flush()

	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	if noMigrate, _ := cmd.Flags().GetBool("no-migrate"); !noMigrate && b.pool != nil {
		dir, _ := cmd.Flags().GetString("migrations")
		if err := runMigrations(cfg.DatabaseURL, dir, logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	reasoning, err := newReasoningClient(cfg, logger)
	if err != nil {
		return err
	}

	index, err := newChunkIndex(ctx, cfg, b, reasoning, logger)
	if err != nil {
		return err
	}

	extractor, err := newExtractor(ctx, cfg, logger)
	if err != nil {
		return err
	}

	chunker, err := service.NewTextChunker(
		service.WithChunkSize(cfg.ChunkSize),
		service.WithChunkOverlap(cfg.ChunkOverlap),
	)
	if err != nil {
		return err
	}

	clock := service.SystemClock{}
	resumeSvc := service.NewResumeService(extractor, chunker, index, reasoning, b.audit, clock,
		service.WithWorkers(cfg.WorkflowWorkers),
		service.WithLogger(logger),
	)
	auditSvc := service.NewAuditService(b.audit, clock)
	searchSvc := service.NewSearchService(index)

	var retentionWorker *jobs.Worker
	if maxAge := cfg.AuditRetention(); maxAge > 0 {
		retentionWorker = jobs.NewWorker("audit-retention", jobs.NewRetentionProcessor(auditSvc, maxAge, logger), cfg.AuditRetentionInterval, logger)
		go retentionWorker.Start(ctx)
		logger.Info("audit retention worker started", "max_age", maxAge.String())
	}

	if !cfg.HasAPIKeys() {
		logger.Warn("no API keys configured; /v1 endpoints are unauthenticated")
	}

	router := server.NewRouter(server.RouterConfig{
		Logger:        logger,
		APIKeys:       cfg.APIKeys,
		AllowOrigins:  cfg.AllowOrigins,
		MaxBodyBytes:  cfg.MaxUploadBytes,
		ResumeHandler: handlers.NewResumeHandler(resumeSvc, searchSvc),
		LogsHandler:   handlers.NewLogsHandler(auditSvc),
		HealthHandler: handlers.NewHealthHandler(b.checks),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	if retentionWorker != nil {
		retentionWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}
