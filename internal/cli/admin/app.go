package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cloo-solutions/talentlens/internal/api/handlers"
	"github.com/cloo-solutions/talentlens/internal/config"
	"github.com/cloo-solutions/talentlens/internal/database"
	"github.com/cloo-solutions/talentlens/internal/extraction"
	"github.com/cloo-solutions/talentlens/internal/openai"
	"github.com/cloo-solutions/talentlens/internal/prompts"
	"github.com/cloo-solutions/talentlens/internal/repository"
	"github.com/cloo-solutions/talentlens/internal/repository/sqlite"
	"github.com/cloo-solutions/talentlens/internal/service"
	"github.com/cloo-solutions/talentlens/internal/storage"
	"github.com/cloo-solutions/talentlens/internal/vectorstore/memory"
	"github.com/cloo-solutions/talentlens/internal/vectorstore/qdrant"
	"github.com/jackc/pgx/v5/pgxpool"
)

// backends holds the stores shared by serve and the admin commands.
type backends struct {
	pool   *pgxpool.Pool
	sqlite *sqlite.AuditStore
	audit  service.AuditRepository
	checks map[string]handlers.Pinger
}

func (b *backends) Close() {
	if b.sqlite != nil {
		_ = b.sqlite.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
}

// openBackends connects to Postgres when a Postgres backend is selected and
// opens the configured audit sink.
func openBackends(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backends, error) {
	b := &backends{checks: map[string]handlers.Pinger{}}

	if cfg.NeedsPostgres() {
		pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
		if err != nil {
			return nil, err
		}
		b.pool = pool
		b.checks["postgres"] = pool
		logger.Info("connected to database")
	}

	switch cfg.AuditBackend {
	case config.AuditBackendSQLite:
		store, err := sqlite.NewAuditStore(cfg.SQLitePath)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.sqlite = store
		b.audit = store
		b.checks["sqlite"] = store
		logger.Info("audit log stored in sqlite", "path", store.Path())
	default:
		b.audit = repository.NewAuditRepository(b.pool)
	}

	return b, nil
}

func newReasoningClient(cfg *config.Config, logger *slog.Logger) (*openai.Client, error) {
	if !cfg.HasOpenAI() {
		return nil, errors.New("TALENTLENS_OPENAI_API_KEY is required")
	}

	set, err := prompts.Load(cfg.PromptsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}

	return openai.NewClient(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		BaseURL:             cfg.OpenAIBaseURL,
		ChatModel:           cfg.OpenAIModel,
		EmbeddingModel:      cfg.OpenAIEmbeddingModel,
		EmbeddingDimensions: cfg.VectorSize,
		RequestsPerSecond:   cfg.OpenAIRequestsPerSecond,
		MaxRetries:          cfg.OpenAIMaxRetries,
		Prompts:             set,
		Logger:              logger,
	}), nil
}

func newChunkIndex(ctx context.Context, cfg *config.Config, b *backends, embedder service.Embedder, logger *slog.Logger) (service.ChunkIndex, error) {
	switch cfg.VectorBackend {
	case config.VectorBackendQdrant:
		idx, err := qdrant.NewIndex(ctx, qdrant.Config{
			URL:        cfg.QdrantURL,
			APIKey:     cfg.QdrantAPIKey,
			Collection: cfg.VectorCollection,
			VectorSize: cfg.VectorSize,
			Similarity: cfg.VectorSimilarity,
			Logger:     logger,
		}, embedder)
		if err != nil {
			return nil, fmt.Errorf("failed to initialise qdrant: %w", err)
		}
		return idx, nil
	case config.VectorBackendMemory:
		logger.Warn("using in-memory vector index; indexed chunks are lost on restart")
		return memory.NewIndex(embedder), nil
	default:
		return repository.NewChunkRepository(b.pool, embedder), nil
	}
}

// newExtractor builds the extraction router. OCR is disabled with a warning
// when tesseract or pdftoppm are missing; pdftotext is required.
func newExtractor(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.TextExtractor, error) {
	if err := extraction.CheckAvailable(cfg.PdfToTextBin); err != nil {
		return nil, err
	}

	runner := extraction.ExecRunner{}
	var image *extraction.Image
	if err := extraction.CheckAvailable(cfg.TesseractBin); err != nil {
		logger.Warn("OCR disabled", "error", err)
	} else {
		image = extraction.NewImage(runner, cfg.TesseractBin, cfg.OCRLanguage)
	}

	pdfCfg := extraction.PDFConfig{PdfToTextBin: cfg.PdfToTextBin, PdfToPpmBin: cfg.PdfToPpmBin, OCR: image}
	if image != nil {
		if err := extraction.CheckAvailable(cfg.PdfToPpmBin); err != nil {
			logger.Warn("scanned PDF fallback disabled", "error", err)
			pdfCfg.OCR = nil
		}
	}

	var extractor service.TextExtractor = extraction.NewRouter(
		extraction.NewPDF(runner, pdfCfg), image, &extraction.PlainText{}, logger)

	if cfg.HasS3() {
		archive, err := storage.NewS3Archive(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		logger.Info("archiving uploads to S3", "bucket", cfg.S3Bucket)
		extractor = extraction.NewArchiving(extractor, archive, logger)
	}

	return extractor, nil
}
