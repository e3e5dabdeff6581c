package service

import (
	"context"
	"sync"
	"time"

	"github.com/cloo-solutions/talentlens/internal/domain"
	"github.com/cloo-solutions/talentlens/internal/pagination"
	"github.com/stretchr/testify/mock"
)

// MockTextExtractor is a mock implementation of TextExtractor
type MockTextExtractor struct {
	mock.Mock
}

func (m *MockTextExtractor) ExtractText(ctx context.Context, file domain.UploadedFile) (string, error) {
	args := m.Called(ctx, file)
	return args.String(0), args.Error(1)
}

// MockChunkIndex is a mock implementation of ChunkIndex
type MockChunkIndex struct {
	mock.Mock
}

func (m *MockChunkIndex) Upsert(ctx context.Context, chunks []domain.ResumeChunk) error {
	args := m.Called(ctx, chunks)
	return args.Error(0)
}

func (m *MockChunkIndex) Query(ctx context.Context, text string, limit int) ([]domain.ResumeChunk, error) {
	args := m.Called(ctx, text, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ResumeChunk), args.Error(1)
}

// MockReasoningClient is a mock implementation of ReasoningClient
type MockReasoningClient struct {
	mock.Mock
}

func (m *MockReasoningClient) Summarize(ctx context.Context, doc *domain.ResumeDocument) (*domain.ResumeSummary, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ResumeSummary), args.Error(1)
}

func (m *MockReasoningClient) Answer(ctx context.Context, query string, docs []*domain.ResumeDocument) (*domain.AnswerPayload, error) {
	args := m.Called(ctx, query, docs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AnswerPayload), args.Error(1)
}

// MockAuditRepository is a mock implementation of AuditRepository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Save(ctx context.Context, entry *domain.AuditLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRepository) List(ctx context.Context, cursor *pagination.Cursor, limit int) ([]*domain.AuditLog, error) {
	args := m.Called(ctx, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AuditLog), args.Error(1)
}

func (m *MockAuditRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockUUIDGenerator hands out a fixed sequence of ids
type MockUUIDGenerator struct {
	mu        sync.Mutex
	callCount int
	uuids     []string
}

func NewMockUUIDGenerator(uuids ...string) *MockUUIDGenerator {
	return &MockUUIDGenerator{uuids: uuids}
}

func (m *MockUUIDGenerator) NewString() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.callCount < len(m.uuids) {
		id := m.uuids[m.callCount]
		m.callCount++
		return id
	}
	return "default-uuid"
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}
