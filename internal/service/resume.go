package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cloo-solutions/talentlens/internal/domain"
	"github.com/cloo-solutions/talentlens/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

// UnknownFilename is reported for a summary whose resume id matches no
// uploaded document.
const UnknownFilename = "unknown"

var errNilSummary = errors.New("reasoning client returned no summary")

// ProcessInput is one batch of resumes to ingest and analyse
type ProcessInput struct {
	RequestID string
	UserID    string
	Query     string
	Files     []domain.UploadedFile
}

// ResumeService runs the ingest, summarize and answer workflow.
type ResumeService struct {
	extractor TextExtractor
	chunker   *TextChunker
	index     ChunkIndex
	reasoning ReasoningClient
	audit     AuditRepository
	clock     Clock
	logger    *slog.Logger

	resumeIDs UUIDGenerator
	chunkIDs  UUIDGenerator
	auditIDs  UUIDGenerator
	workers   int
}

// ResumeServiceOption configures a ResumeService.
type ResumeServiceOption func(*ResumeService)

// WithWorkers bounds how many files are extracted or summarized at once.
// Values below 2 keep the workflow sequential.
func WithWorkers(n int) ResumeServiceOption {
	return func(s *ResumeService) { s.workers = n }
}

// WithUUIDGenerators overrides resume and chunk id generation (for testing).
func WithUUIDGenerators(resumeIDs, chunkIDs UUIDGenerator) ResumeServiceOption {
	return func(s *ResumeService) {
		s.resumeIDs = resumeIDs
		s.chunkIDs = chunkIDs
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) ResumeServiceOption {
	return func(s *ResumeService) { s.logger = logger }
}

// NewResumeService creates a new ResumeService instance
func NewResumeService(
	extractor TextExtractor,
	chunker *TextChunker,
	index ChunkIndex,
	reasoning ReasoningClient,
	audit AuditRepository,
	clock Clock,
	opts ...ResumeServiceOption,
) *ResumeService {
	s := &ResumeService{
		extractor: extractor,
		chunker:   chunker,
		index:     index,
		reasoning: reasoning,
		audit:     audit,
		clock:     clock,
		logger:    slog.Default(),
		resumeIDs: TimeOrderedUUIDGenerator{},
		chunkIDs:  RandomUUIDGenerator{},
		auditIDs:  TimeOrderedUUIDGenerator{},
		workers:   1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute processes a batch: extract, chunk, index, summarize, optionally
// answer the query, then write exactly one audit entry. Any collaborator
// error aborts the batch and is returned unchanged; nothing is audited in
// that case.
func (s *ResumeService) Execute(ctx context.Context, input ProcessInput) (*domain.ProcessResult, error) {
	if len(input.Files) == 0 {
		return nil, domain.ErrInvalidRequest
	}

	ctx, span := telemetry.StartSpan(ctx, "ResumeService.Execute", telemetry.SpanAttributes{
		RequestID: input.RequestID,
		UserID:    input.UserID,
		Operation: "process",
	})
	defer span.End()
	span.SetData("files", len(input.Files))

	started := time.Now()
	s.logger.InfoContext(ctx, "processing resumes",
		"request_id", input.RequestID,
		"user_id", input.UserID,
		"files", len(input.Files),
		"has_query", input.Query != "",
	)

	docs, err := s.extract(ctx, input.Files)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	chunks := s.chunk(docs)
	span.SetData("chunks", len(chunks))
	if len(chunks) > 0 {
		if err := s.index.Upsert(ctx, chunks); err != nil {
			span.SetError(err)
			return nil, err
		}
	}

	summaries, err := s.summarize(ctx, docs)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	var answer *domain.QueryAnswer
	if input.Query != "" {
		answer, err = s.answer(ctx, input.RequestID, input.Query, docs)
		if err != nil {
			span.SetError(err)
			return nil, err
		}
	}

	result := &domain.ProcessResult{
		RequestID:   input.RequestID,
		Summaries:   s.pairWithFilenames(ctx, input.RequestID, docs, summaries),
		QueryAnswer: answer,
	}

	entry := domain.NewAuditLog(s.auditIDs.NewString(), input.UserID, input.Query, result, s.clock.Now())
	if err := s.audit.Save(ctx, entry); err != nil {
		span.SetError(err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "resumes processed",
		"request_id", input.RequestID,
		"resumes", len(docs),
		"chunks", len(chunks),
		"answered", answer != nil,
		"duration_ms", time.Since(started).Milliseconds(),
	)

	return result, nil
}

func (s *ResumeService) extract(ctx context.Context, files []domain.UploadedFile) ([]*domain.ResumeDocument, error) {
	ctx, span := telemetry.StartSpan(ctx, "ResumeService.extract", telemetry.SpanAttributes{Operation: "extract"})
	defer span.End()

	docs := make([]*domain.ResumeDocument, len(files))
	for i, f := range files {
		docs[i] = &domain.ResumeDocument{
			ResumeID:    s.resumeIDs.NewString(),
			Filename:    f.Filename,
			ContentType: f.ContentType,
			Language:    domain.DefaultLanguage,
		}
	}

	err := s.forEach(ctx, len(files), func(ctx context.Context, i int) error {
		text, err := s.extractor.ExtractText(ctx, files[i])
		if err != nil {
			s.logger.WarnContext(ctx, "text extraction failed",
				"filename", files[i].Filename,
				"error", err,
			)
			return err
		}
		docs[i].ExtractedText = strings.TrimSpace(text)
		docs[i].CreatedAt = s.clock.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// chunk splits every document and returns all chunks flattened in document
// order, then position.
func (s *ResumeService) chunk(docs []*domain.ResumeDocument) []domain.ResumeChunk {
	var all []domain.ResumeChunk
	for _, doc := range docs {
		pieces := s.chunker.Split(doc.ExtractedText)
		doc.Chunks = make([]domain.ResumeChunk, 0, len(pieces))
		for pos, text := range pieces {
			doc.Chunks = append(doc.Chunks, domain.NewResumeChunk(s.chunkIDs.NewString(), doc.ResumeID, text, pos))
		}
		all = append(all, doc.Chunks...)
	}
	return all
}

func (s *ResumeService) summarize(ctx context.Context, docs []*domain.ResumeDocument) ([]*domain.ResumeSummary, error) {
	ctx, span := telemetry.StartSpan(ctx, "ResumeService.summarize", telemetry.SpanAttributes{Operation: "summarize"})
	defer span.End()

	out := make([]*domain.ResumeSummary, len(docs))
	err := s.forEach(ctx, len(docs), func(ctx context.Context, i int) error {
		summary, err := s.reasoning.Summarize(ctx, docs[i])
		if err != nil {
			return err
		}
		if summary == nil {
			return domain.ReasoningFailure(errNilSummary)
		}
		out[i] = summary
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ResumeService) answer(ctx context.Context, requestID, query string, docs []*domain.ResumeDocument) (*domain.QueryAnswer, error) {
	ctx, span := telemetry.StartSpan(ctx, "ResumeService.answer", telemetry.SpanAttributes{
		RequestID: requestID,
		Operation: "answer",
	})
	defer span.End()

	payload, err := s.reasoning.Answer(ctx, query, docs)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		payload = &domain.AnswerPayload{}
	}

	return &domain.QueryAnswer{
		RequestID:         requestID,
		Answer:            payload.Answer,
		Justifications:    nonNil(payload.Justifications),
		ReferencedResumes: nonNil(payload.ReferencedResumes),
	}, nil
}

func (s *ResumeService) pairWithFilenames(ctx context.Context, requestID string, docs []*domain.ResumeDocument, summaries []*domain.ResumeSummary) []domain.SummaryResult {
	filenames := make(map[string]string, len(docs))
	for _, doc := range docs {
		filenames[doc.ResumeID] = doc.Filename
	}

	out := make([]domain.SummaryResult, 0, len(summaries))
	for _, sum := range summaries {
		filename, ok := filenames[sum.ResumeID]
		if !ok {
			filename = UnknownFilename
			s.logger.WarnContext(ctx, "summary references unknown resume",
				"request_id", requestID,
				"resume_id", sum.ResumeID,
			)
			telemetry.CaptureMessage(ctx, "filename_lookup_miss: "+sum.ResumeID)
		}
		out = append(out, domain.SummaryResult{
			ResumeID:   sum.ResumeID,
			Filename:   filename,
			Summary:    sum.Summary,
			Highlights: nonNil(sum.Highlights),
		})
	}
	return out
}

// forEach runs fn for indexes [0, n). With one worker it runs in order and
// stops at the first error; otherwise it fans out through an errgroup and
// returns the first error, cancelling the rest.
func (s *ResumeService) forEach(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	if s.workers <= 1 {
		for i := 0; i < n; i++ {
			if err := fn(ctx, i); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			return fn(gctx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
