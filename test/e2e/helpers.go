//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/talentlens/internal/api/handlers"
	"github.com/cloo-solutions/talentlens/internal/domain"
	"github.com/cloo-solutions/talentlens/internal/extraction"
	"github.com/cloo-solutions/talentlens/internal/logging"
	"github.com/cloo-solutions/talentlens/internal/repository"
	"github.com/cloo-solutions/talentlens/internal/server"
	"github.com/cloo-solutions/talentlens/internal/service"
	"github.com/cloo-solutions/talentlens/internal/storage"
	"github.com/cloo-solutions/talentlens/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

const testAPIKey = "e2e-secret-key"

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	RustFSC    *testutil.RustFSContainer
	Pool       *pgxpool.Pool
	Server     *httptest.Server
	Archive    *storage.S3Archive
	Reasoning  *scriptedReasoning
	BinaryDir  string
	HTTPClient *http.Client
}

// SetupE2EEnv starts Postgres and RustFS and serves the full router over
// real repositories. Text extraction handles plain text only so the suite
// does not depend on poppler or tesseract being installed.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	archive, err := storage.NewS3Archive(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     testutil.RustFSAccessKey,
		SecretAccessKey: testutil.RustFSSecretKey,
		Bucket:          "e2e-resumes",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 archive: %v", err)
	}
	if err := archive.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	env := &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		RustFSC:    s3C,
		Pool:       pool,
		Archive:    archive,
		Reasoning:  &scriptedReasoning{},
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
	env.Server = httptest.NewServer(env.router())
	return env
}

func (e *E2ETestEnv) router() http.Handler {
	logger := logging.Discard()
	embedder := keywordEmbedder{}

	extractor := extraction.NewArchiving(
		extraction.NewRouter(extraction.NewPDF(nil, extraction.PDFConfig{}), nil, &extraction.PlainText{}, logger),
		e.Archive, logger)
	chunker, err := service.NewTextChunker(service.WithChunkSize(200), service.WithChunkOverlap(20))
	if err != nil {
		e.T.Fatalf("failed to create chunker: %v", err)
	}

	audit := repository.NewAuditRepository(e.Pool)
	index := repository.NewChunkRepository(e.Pool, embedder)
	clock := service.SystemClock{}

	resumeSvc := service.NewResumeService(extractor, chunker, index, e.Reasoning, audit, clock,
		service.WithWorkers(2), service.WithLogger(logger))
	auditSvc := service.NewAuditService(audit, clock)

	return server.NewRouter(server.RouterConfig{
		Logger:        logger,
		APIKeys:       []string{testAPIKey},
		ResumeHandler: handlers.NewResumeHandler(resumeSvc, service.NewSearchService(index)),
		LogsHandler:   handlers.NewLogsHandler(auditSvc),
		HealthHandler: handlers.NewHealthHandler(map[string]handlers.Pinger{"postgres": e.Pool}),
	})
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.Server != nil {
		e.Server.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// keywordEmbedder maps text onto three axes: go, python, kafka.
type keywordEmbedder struct{}

func (keywordEmbedder) vector(text string) []float32 {
	lower := strings.ToLower(text)
	v := []float32{0.01, 0.01, 0.01}
	for i, kw := range []string{"go", "python", "kafka"} {
		if strings.Contains(lower, kw) {
			v[i] = 1
		}
	}
	return v
}

func (k keywordEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = k.vector(t)
	}
	return out, nil
}

func (k keywordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return k.vector(text), nil
}

// scriptedReasoning summarizes with the first line of each resume and
// answers with every resume that mentions the last word of the query.
type scriptedReasoning struct{}

func (scriptedReasoning) Summarize(_ context.Context, doc *domain.ResumeDocument) (*domain.ResumeSummary, error) {
	first, _, _ := strings.Cut(doc.ExtractedText, "\n")
	return &domain.ResumeSummary{
		ResumeID:   doc.ResumeID,
		Summary:    strings.TrimSpace(first),
		Highlights: []string{fmt.Sprintf("%d characters", len([]rune(doc.ExtractedText)))},
	}, nil
}

func (scriptedReasoning) Answer(_ context.Context, query string, docs []*domain.ResumeDocument) (*domain.AnswerPayload, error) {
	words := strings.Fields(strings.ToLower(strings.TrimRight(query, "?")))
	keyword := words[len(words)-1]

	payload := &domain.AnswerPayload{Justifications: []string{}, ReferencedResumes: []string{}}
	var names []string
	for _, d := range docs {
		if strings.Contains(strings.ToLower(d.ExtractedText), keyword) {
			names = append(names, d.Filename)
			payload.ReferencedResumes = append(payload.ReferencedResumes, d.ResumeID)
			payload.Justifications = append(payload.Justifications, d.Filename+" mentions "+keyword)
		}
	}
	payload.Answer = strings.Join(names, ", ")
	return payload, nil
}

// APIResponse is the server's response envelope.
type APIResponse struct {
	Status int
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error,omitempty"`
	Code   string          `json:"code,omitempty"`
}

type formFile struct {
	Name string
	Data string
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, apiKey string) *APIResponse {
	req, err := http.NewRequest(http.MethodGet, e.Server.URL+path, nil)
	if err != nil {
		e.T.Fatalf("failed to build request: %v", err)
	}
	return e.do(req, apiKey)
}

// Process posts a multipart batch to the process endpoint.
func (e *E2ETestEnv) Process(fields map[string]string, files []formFile, apiKey string) *APIResponse {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			e.T.Fatalf("failed to write field: %v", err)
		}
	}
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.Name)
		if err != nil {
			e.T.Fatalf("failed to create part: %v", err)
		}
		if _, err := part.Write([]byte(f.Data)); err != nil {
			e.T.Fatalf("failed to write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		e.T.Fatalf("failed to close multipart writer: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, e.Server.URL+"/v1/resumes/process", &body)
	if err != nil {
		e.T.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.do(req, apiKey)
}

func (e *E2ETestEnv) do(req *http.Request, apiKey string) *APIResponse {
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		e.T.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		e.T.Fatalf("failed to read body: %v", err)
	}

	apiResp := &APIResponse{Status: resp.StatusCode}
	if err := json.Unmarshal(raw, apiResp); err != nil {
		e.T.Fatalf("HTTP %d: non-JSON body %q", resp.StatusCode, raw)
	}
	return apiResp
}

// BuildCLI builds the talentlens client binary.
func (e *E2ETestEnv) BuildCLI() {
	tmpDir, err := os.MkdirTemp("", "talentlens-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "talentlens"), "./cmd/talentlens")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build talentlens: %v\n%s", err, out)
	}
}

// RunCLI runs the talentlens binary against the test server.
func (e *E2ETestEnv) RunCLI(workDir string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "talentlens"), args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(),
		"TALENTLENS_API_KEY="+testAPIKey,
		"TALENTLENS_API_URL="+e.Server.URL,
		"XDG_CONFIG_HOME="+workDir,
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}
