package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/talentlens/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)

type resumeFixture struct {
	extractor *MockTextExtractor
	index     *MockChunkIndex
	reasoning *MockReasoningClient
	audit     *MockAuditRepository
	svc       *ResumeService
}

func newResumeFixture(t *testing.T, opts ...ResumeServiceOption) *resumeFixture {
	t.Helper()
	chunker, err := NewTextChunker()
	require.NoError(t, err)
	return newResumeFixtureWithChunker(t, chunker, opts...)
}

func newResumeFixtureWithChunker(t *testing.T, chunker *TextChunker, opts ...ResumeServiceOption) *resumeFixture {
	t.Helper()
	f := &resumeFixture{
		extractor: new(MockTextExtractor),
		index:     new(MockChunkIndex),
		reasoning: new(MockReasoningClient),
		audit:     new(MockAuditRepository),
	}
	base := []ResumeServiceOption{
		WithUUIDGenerators(
			NewMockUUIDGenerator("r1", "r2", "r3", "r4", "r5"),
			NewMockUUIDGenerator("c1", "c2", "c3", "c4", "c5", "c6", "c7", "c8", "c9"),
		),
	}
	f.svc = NewResumeService(f.extractor, chunker, f.index, f.reasoning, f.audit, fixedClock{now: testNow}, append(base, opts...)...)
	return f
}

func (f *resumeFixture) assertExpectations(t *testing.T) {
	f.extractor.AssertExpectations(t)
	f.index.AssertExpectations(t)
	f.reasoning.AssertExpectations(t)
	f.audit.AssertExpectations(t)
}

func fileNamed(name string) interface{} {
	return mock.MatchedBy(func(f domain.UploadedFile) bool { return f.Filename == name })
}

func docWithID(id string) interface{} {
	return mock.MatchedBy(func(d *domain.ResumeDocument) bool { return d.ResumeID == id })
}

func TestResumeService_Execute_SinglePDFWithoutQuery(t *testing.T) {
	f := newResumeFixture(t)
	file := domain.UploadedFile{Filename: "cv.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}

	f.extractor.On("ExtractText", mock.Anything, file).Return("  Go engineer, 6 years.\n", nil)

	var indexed []domain.ResumeChunk
	f.index.On("Upsert", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { indexed = args.Get(1).([]domain.ResumeChunk) }).
		Return(nil).Once()

	f.reasoning.On("Summarize", mock.Anything, docWithID("r1")).
		Return(&domain.ResumeSummary{ResumeID: "r1", Summary: "Backend engineer", Highlights: []string{"Go"}}, nil).Once()

	var saved *domain.AuditLog
	f.audit.On("Save", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*domain.AuditLog) }).
		Return(nil).Once()

	result, err := f.svc.Execute(context.Background(), ProcessInput{
		RequestID: "req-1",
		UserID:    "u1",
		Files:     []domain.UploadedFile{file},
	})

	require.NoError(t, err)
	assert.Equal(t, "req-1", result.RequestID)
	require.Len(t, result.Summaries, 1)
	assert.Equal(t, domain.SummaryResult{ResumeID: "r1", Filename: "cv.pdf", Summary: "Backend engineer", Highlights: []string{"Go"}}, result.Summaries[0])
	assert.Nil(t, result.QueryAnswer)

	require.Len(t, indexed, 1)
	assert.Equal(t, "c1", indexed[0].ChunkID)
	assert.Equal(t, "Go engineer, 6 years.", indexed[0].Text)
	assert.Equal(t, map[string]string{"resume_id": "r1", "position": "0"}, indexed[0].Metadata)

	require.NotNil(t, saved)
	assert.Equal(t, "req-1", saved.RequestID)
	assert.Equal(t, "u1", saved.UserID)
	assert.Equal(t, testNow, saved.Timestamp)
	assert.Nil(t, saved.Query)
	assert.Nil(t, saved.Result.QueryAnswer)

	f.reasoning.AssertNotCalled(t, "Answer", mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestResumeService_Execute_TwoFilesWithQuery(t *testing.T) {
	f := newResumeFixture(t)
	files := []domain.UploadedFile{
		{Filename: "alice.pdf", ContentType: "application/pdf"},
		{Filename: "bob.png", ContentType: "image/png"},
	}

	f.extractor.On("ExtractText", mock.Anything, fileNamed("alice.pdf")).Return("Alice: Go, Kubernetes", nil)
	f.extractor.On("ExtractText", mock.Anything, fileNamed("bob.png")).Return("Bob: Python, Django", nil)
	f.index.On("Upsert", mock.Anything, mock.Anything).Return(nil).Once()
	f.reasoning.On("Summarize", mock.Anything, docWithID("r1")).
		Return(&domain.ResumeSummary{ResumeID: "r1", Summary: "Alice summary", Highlights: []string{"Go"}}, nil)
	f.reasoning.On("Summarize", mock.Anything, docWithID("r2")).
		Return(&domain.ResumeSummary{ResumeID: "r2", Summary: "Bob summary", Highlights: []string{"Python"}}, nil)

	var answeredDocs []*domain.ResumeDocument
	f.reasoning.On("Answer", mock.Anything, "Who knows Go?", mock.Anything).
		Run(func(args mock.Arguments) { answeredDocs = args.Get(2).([]*domain.ResumeDocument) }).
		Return(&domain.AnswerPayload{
			Answer:            "Alice",
			Justifications:    []string{"Alice lists Go"},
			ReferencedResumes: []string{"r1", "r1"},
		}, nil).Once()

	var saved *domain.AuditLog
	f.audit.On("Save", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*domain.AuditLog) }).
		Return(nil).Once()

	result, err := f.svc.Execute(context.Background(), ProcessInput{
		RequestID: "req-2",
		UserID:    "u2",
		Query:     "Who knows Go?",
		Files:     files,
	})

	require.NoError(t, err)
	require.Len(t, result.Summaries, 2)
	assert.Equal(t, "alice.pdf", result.Summaries[0].Filename)
	assert.Equal(t, "bob.png", result.Summaries[1].Filename)

	require.NotNil(t, result.QueryAnswer)
	assert.Equal(t, "req-2", result.QueryAnswer.RequestID)
	assert.Equal(t, "Alice", result.QueryAnswer.Answer)
	assert.Equal(t, []string{"r1", "r1"}, result.QueryAnswer.ReferencedResumes)

	require.Len(t, answeredDocs, 2)
	assert.Equal(t, "r1", answeredDocs[0].ResumeID)
	assert.Equal(t, "Bob: Python, Django", answeredDocs[1].ExtractedText)
	assert.Equal(t, domain.DefaultLanguage, answeredDocs[1].Language)
	assert.Equal(t, testNow, answeredDocs[1].CreatedAt)

	require.NotNil(t, saved.Query)
	assert.Equal(t, "Who knows Go?", *saved.Query)
	require.NotNil(t, saved.Result.QueryAnswer)
	assert.Equal(t, "Alice", saved.Result.QueryAnswer.Answer)
	require.Len(t, saved.Result.Summaries, 2)
	assert.Equal(t, []string{"Python"}, saved.Result.Summaries[1].Highlights)

	f.assertExpectations(t)
}

func TestResumeService_Execute_NoFiles(t *testing.T) {
	f := newResumeFixture(t)

	result, err := f.svc.Execute(context.Background(), ProcessInput{RequestID: "req", UserID: "u"})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	f.extractor.AssertNotCalled(t, "ExtractText", mock.Anything, mock.Anything)
	f.index.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	f.reasoning.AssertNotCalled(t, "Summarize", mock.Anything, mock.Anything)
	f.audit.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestResumeService_Execute_ExtractionFailureAbortsBatch(t *testing.T) {
	f := newResumeFixture(t)
	failure := domain.ExtractionFailure(errors.New("corrupt image"))

	f.extractor.On("ExtractText", mock.Anything, fileNamed("ok.pdf")).Return("fine", nil)
	f.extractor.On("ExtractText", mock.Anything, fileNamed("bad.png")).Return("", failure)

	result, err := f.svc.Execute(context.Background(), ProcessInput{
		RequestID: "req-3",
		UserID:    "u3",
		Files:     []domain.UploadedFile{{Filename: "ok.pdf"}, {Filename: "bad.png"}},
	})

	assert.Nil(t, result)
	assert.Same(t, failure, err)
	f.index.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	f.reasoning.AssertNotCalled(t, "Summarize", mock.Anything, mock.Anything)
	f.audit.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestResumeService_Execute_CollaboratorErrorsPropagate(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *resumeFixture, failure error)
	}{
		{
			name: "Index",
			setup: func(f *resumeFixture, failure error) {
				f.index.On("Upsert", mock.Anything, mock.Anything).Return(failure)
			},
		},
		{
			name: "Summarize",
			setup: func(f *resumeFixture, failure error) {
				f.index.On("Upsert", mock.Anything, mock.Anything).Return(nil)
				f.reasoning.On("Summarize", mock.Anything, mock.Anything).Return(nil, failure)
			},
		},
		{
			name: "Answer",
			setup: func(f *resumeFixture, failure error) {
				f.index.On("Upsert", mock.Anything, mock.Anything).Return(nil)
				f.reasoning.On("Summarize", mock.Anything, mock.Anything).
					Return(&domain.ResumeSummary{ResumeID: "r1"}, nil)
				f.reasoning.On("Answer", mock.Anything, mock.Anything, mock.Anything).Return(nil, failure)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newResumeFixture(t)
			failure := errors.New(tt.name + " unavailable")
			f.extractor.On("ExtractText", mock.Anything, mock.Anything).Return("some text", nil)
			tt.setup(f, failure)

			result, err := f.svc.Execute(context.Background(), ProcessInput{
				RequestID: "req",
				UserID:    "u",
				Query:     "q",
				Files:     []domain.UploadedFile{{Filename: "a.txt"}},
			})

			assert.Nil(t, result)
			assert.Same(t, failure, err)
			f.audit.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}
}

func TestResumeService_Execute_AuditFailureDiscardsResult(t *testing.T) {
	f := newResumeFixture(t)
	failure := domain.PersistenceFailure(errors.New("disk full"))

	f.extractor.On("ExtractText", mock.Anything, mock.Anything).Return("text", nil)
	f.index.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	f.reasoning.On("Summarize", mock.Anything, mock.Anything).Return(&domain.ResumeSummary{ResumeID: "r1"}, nil)
	f.audit.On("Save", mock.Anything, mock.Anything).Return(failure).Once()

	result, err := f.svc.Execute(context.Background(), ProcessInput{
		RequestID: "req",
		UserID:    "u",
		Files:     []domain.UploadedFile{{Filename: "a.txt"}},
	})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrPersistenceFailed)
	f.audit.AssertExpectations(t)
}

func TestResumeService_Execute_EmptyTextSkipsIndexing(t *testing.T) {
	f := newResumeFixture(t)

	f.extractor.On("ExtractText", mock.Anything, mock.Anything).Return(" \n\t", nil)
	f.reasoning.On("Summarize", mock.Anything, mock.MatchedBy(func(d *domain.ResumeDocument) bool {
		return d.ExtractedText == "" && len(d.Chunks) == 0
	})).Return(&domain.ResumeSummary{ResumeID: "r1", Summary: "empty"}, nil)
	f.audit.On("Save", mock.Anything, mock.Anything).Return(nil)

	result, err := f.svc.Execute(context.Background(), ProcessInput{
		RequestID: "req",
		UserID:    "u",
		Files:     []domain.UploadedFile{{Filename: "blank.png"}},
	})

	require.NoError(t, err)
	require.Len(t, result.Summaries, 1)
	assert.Equal(t, []string{}, result.Summaries[0].Highlights)
	f.index.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestResumeService_Execute_UnknownResumeIDGetsSentinel(t *testing.T) {
	f := newResumeFixture(t)

	f.extractor.On("ExtractText", mock.Anything, mock.Anything).Return("text", nil)
	f.index.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	f.reasoning.On("Summarize", mock.Anything, mock.Anything).
		Return(&domain.ResumeSummary{ResumeID: "someone-else", Summary: "s"}, nil)
	f.audit.On("Save", mock.Anything, mock.Anything).Return(nil)

	result, err := f.svc.Execute(context.Background(), ProcessInput{
		RequestID: "req",
		UserID:    "u",
		Files:     []domain.UploadedFile{{Filename: "a.txt"}},
	})

	require.NoError(t, err)
	assert.Equal(t, UnknownFilename, result.Summaries[0].Filename)
}

func TestResumeService_Execute_NilAnswerListsBecomeEmpty(t *testing.T) {
	f := newResumeFixture(t)

	f.extractor.On("ExtractText", mock.Anything, mock.Anything).Return("text", nil)
	f.index.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	f.reasoning.On("Summarize", mock.Anything, mock.Anything).Return(&domain.ResumeSummary{ResumeID: "r1"}, nil)
	f.reasoning.On("Answer", mock.Anything, "q", mock.Anything).Return(&domain.AnswerPayload{Answer: "none"}, nil)
	f.audit.On("Save", mock.Anything, mock.Anything).Return(nil)

	result, err := f.svc.Execute(context.Background(), ProcessInput{
		RequestID: "req",
		UserID:    "u",
		Query:     "q",
		Files:     []domain.UploadedFile{{Filename: "a.txt"}},
	})

	require.NoError(t, err)
	require.NotNil(t, result.QueryAnswer)
	assert.Equal(t, []string{}, result.QueryAnswer.Justifications)
	assert.Equal(t, []string{}, result.QueryAnswer.ReferencedResumes)
}

func TestResumeService_Execute_UpsertOrderFollowsDocumentsThenPosition(t *testing.T) {
	chunker, err := NewTextChunker(WithChunkSize(12), WithChunkOverlap(0))
	require.NoError(t, err)
	f := newResumeFixtureWithChunker(t, chunker)

	f.extractor.On("ExtractText", mock.Anything, fileNamed("a.txt")).Return("alpha beta gamma delta", nil)
	f.extractor.On("ExtractText", mock.Anything, fileNamed("b.txt")).Return("one two three four", nil)

	var indexed []domain.ResumeChunk
	f.index.On("Upsert", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { indexed = args.Get(1).([]domain.ResumeChunk) }).
		Return(nil).Once()
	f.reasoning.On("Summarize", mock.Anything, docWithID("r1")).Return(&domain.ResumeSummary{ResumeID: "r1"}, nil)
	f.reasoning.On("Summarize", mock.Anything, docWithID("r2")).Return(&domain.ResumeSummary{ResumeID: "r2"}, nil)
	f.audit.On("Save", mock.Anything, mock.Anything).Return(nil)

	_, err = f.svc.Execute(context.Background(), ProcessInput{
		RequestID: "req",
		UserID:    "u",
		Files:     []domain.UploadedFile{{Filename: "a.txt"}, {Filename: "b.txt"}},
	})
	require.NoError(t, err)

	var order []string
	for _, c := range indexed {
		order = append(order, c.Metadata[domain.MetaResumeID]+"/"+c.Metadata[domain.MetaPosition])
	}
	assert.Equal(t, []string{"r1/0", "r1/1", "r2/0", "r2/1"}, order)
	assert.Equal(t, "alpha beta", indexed[0].Text)
	assert.Equal(t, "one two", indexed[2].Text)
}

func TestResumeService_Execute_ParallelWorkersKeepInputOrder(t *testing.T) {
	f := newResumeFixture(t, WithWorkers(3))

	var files []domain.UploadedFile
	for i := 1; i <= 5; i++ {
		name := fmt.Sprintf("cv%d.txt", i)
		files = append(files, domain.UploadedFile{Filename: name})
		f.extractor.On("ExtractText", mock.Anything, fileNamed(name)).Return(strings.Repeat("x", i), nil)
		id := fmt.Sprintf("r%d", i)
		f.reasoning.On("Summarize", mock.Anything, docWithID(id)).
			Return(&domain.ResumeSummary{ResumeID: id, Summary: "summary " + id}, nil)
	}
	f.index.On("Upsert", mock.Anything, mock.Anything).Return(nil).Once()
	f.audit.On("Save", mock.Anything, mock.Anything).Return(nil).Once()

	result, err := f.svc.Execute(context.Background(), ProcessInput{RequestID: "req", UserID: "u", Files: files})

	require.NoError(t, err)
	require.Len(t, result.Summaries, 5)
	for i, s := range result.Summaries {
		assert.Equal(t, fmt.Sprintf("cv%d.txt", i+1), s.Filename)
		assert.Equal(t, fmt.Sprintf("summary r%d", i+1), s.Summary)
	}
	f.assertExpectations(t)
}

func TestResumeService_Execute_ParallelFailureSkipsIndexAndAudit(t *testing.T) {
	f := newResumeFixture(t, WithWorkers(2))
	failure := domain.ExtractionFailure(errors.New("unsupported"))

	f.extractor.On("ExtractText", mock.Anything, fileNamed("a.txt")).Return("a", nil).Maybe()
	f.extractor.On("ExtractText", mock.Anything, fileNamed("b.bin")).Return("", failure)
	f.extractor.On("ExtractText", mock.Anything, fileNamed("c.txt")).Return("c", nil).Maybe()

	_, err := f.svc.Execute(context.Background(), ProcessInput{
		RequestID: "req",
		UserID:    "u",
		Files:     []domain.UploadedFile{{Filename: "a.txt"}, {Filename: "b.bin"}, {Filename: "c.txt"}},
	})

	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
	f.index.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	f.audit.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}
