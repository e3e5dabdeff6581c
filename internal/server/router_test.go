package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/talentlens/internal/api/handlers"
	"github.com/cloo-solutions/talentlens/internal/domain"
	"github.com/cloo-solutions/talentlens/internal/logging"
	"github.com/cloo-solutions/talentlens/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockResumeProcessor struct {
	mock.Mock
}

func (m *MockResumeProcessor) Execute(ctx context.Context, input service.ProcessInput) (*domain.ProcessResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProcessResult), args.Error(1)
}

type MockChunkSearcher struct {
	mock.Mock
}

func (m *MockChunkSearcher) Search(ctx context.Context, query string, limit int) ([]domain.ResumeChunk, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ResumeChunk), args.Error(1)
}

type MockAuditLister struct {
	mock.Mock
}

func (m *MockAuditLister) ListLogs(ctx context.Context, input service.ListLogsInput) (*service.ListLogsOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListLogsOutput), args.Error(1)
}

type testRouter struct {
	handler http.Handler
	resume  *MockResumeProcessor
	search  *MockChunkSearcher
	logs    *MockAuditLister
}

func newTestRouter(keys []string, maxBody int64) *testRouter {
	tr := &testRouter{
		resume: new(MockResumeProcessor),
		search: new(MockChunkSearcher),
		logs:   new(MockAuditLister),
	}
	tr.handler = NewRouter(RouterConfig{
		Logger:        logging.Discard(),
		APIKeys:       keys,
		AllowOrigins:  []string{"https://app.example.com"},
		MaxBodyBytes:  maxBody,
		ResumeHandler: handlers.NewResumeHandler(tr.resume, tr.search),
		LogsHandler:   handlers.NewLogsHandler(tr.logs),
		HealthHandler: handlers.NewHealthHandler(nil),
	})
	return tr
}

func (tr *testRouter) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	tr.handler.ServeHTTP(w, req)
	return w
}

func processBody(t *testing.T, userID string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("user_id", userID))
	part, err := mw.CreateFormFile("files", "cv.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("Go engineer"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestRouter_Health(t *testing.T) {
	tr := newTestRouter(nil, 0)

	w := tr.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	var resp map[string]map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["data"]["status"])
}

func TestRouter_Ready(t *testing.T) {
	tr := newTestRouter(nil, 0)

	w := tr.do(httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_HealthIsPublic(t *testing.T) {
	tr := newTestRouter([]string{"secret"}, 0)

	w := tr.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_AuthRequiredWhenKeysConfigured(t *testing.T) {
	tr := newTestRouter([]string{"secret"}, 0)

	for _, path := range []string{"/v1/logs", "/v1/resumes/search?q=go"} {
		w := tr.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/logs", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, tr.do(req).Code)
	tr.logs.AssertNotCalled(t, "ListLogs", mock.Anything, mock.Anything)
}

func TestRouter_Logs(t *testing.T) {
	tr := newTestRouter([]string{"secret"}, 0)
	tr.logs.On("ListLogs", mock.Anything, service.ListLogsInput{Limit: 5}).Return(&service.ListLogsOutput{
		Items: []*domain.AuditLog{{ID: "a1", RequestID: "r1", UserID: "u1", Timestamp: time.Unix(0, 0)}},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/logs?limit=5", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := tr.do(req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"request_id":"r1"`)
	tr.logs.AssertExpectations(t)
}

func TestRouter_ProcessUsesHeaderRequestID(t *testing.T) {
	tr := newTestRouter(nil, 0)
	tr.resume.On("Execute", mock.Anything, mock.MatchedBy(func(in service.ProcessInput) bool {
		return in.RequestID == "trace-7" && in.UserID == "u1" && len(in.Files) == 1
	})).Return(&domain.ProcessResult{RequestID: "trace-7", Summaries: []domain.SummaryResult{}}, nil)

	body, contentType := processBody(t, "u1")
	req := httptest.NewRequest(http.MethodPost, "/v1/resumes/process", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Request-ID", "trace-7")
	w := tr.do(req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "trace-7", w.Header().Get("X-Request-ID"))
	tr.resume.AssertExpectations(t)
}

func TestRouter_ProcessBodyTooLarge(t *testing.T) {
	tr := newTestRouter(nil, 64)

	body, contentType := processBody(t, strings.Repeat("u", 128))
	req := httptest.NewRequest(http.MethodPost, "/v1/resumes/process", body)
	req.Header.Set("Content-Type", contentType)
	w := tr.do(req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	tr.resume.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestRouter_CORSPreflight(t *testing.T) {
	tr := newTestRouter([]string{"secret"}, 0)

	req := httptest.NewRequest(http.MethodOptions, "/v1/resumes/process", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := tr.do(req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_NotFound(t *testing.T) {
	tr := newTestRouter(nil, 0)

	w := tr.do(httptest.NewRequest(http.MethodGet, "/v1/knowledge", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	tr := newTestRouter(nil, 0)

	w := tr.do(httptest.NewRequest(http.MethodGet, "/v1/resumes/process", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
