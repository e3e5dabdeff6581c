package domain

import (
	"strconv"
	"strings"
	"time"
)

// Chunk metadata keys
const (
	MetaResumeID = "resume_id"
	MetaPosition = "position"
	MetaRank     = "rank"
	MetaScore    = "score"
)

// DefaultLanguage is recorded on every document; language detection is
// left to the OCR engine.
const DefaultLanguage = "auto"

// DefaultContentType is used when an upload carries no content type.
const DefaultContentType = "application/octet-stream"

// UploadedFile is one binary resume supplied by the caller
type UploadedFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Extension returns the lowercased text after the last dot of the filename.
// A filename without a dot yields the whole lowercased name.
func (f UploadedFile) Extension() string {
	name := strings.ToLower(f.Filename)
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

// ResumeChunk is a retrievable slice of a resume's text
type ResumeChunk struct {
	ChunkID  string
	Text     string
	Metadata map[string]string
}

// ResumeID returns the owning resume id from the chunk metadata.
func (c ResumeChunk) ResumeID() string {
	return c.Metadata[MetaResumeID]
}

// NewResumeChunk creates a chunk tagged with its resume and position
func NewResumeChunk(chunkID, resumeID, text string, position int) ResumeChunk {
	return ResumeChunk{
		ChunkID: chunkID,
		Text:    text,
		Metadata: map[string]string{
			MetaResumeID: resumeID,
			MetaPosition: strconv.Itoa(position),
		},
	}
}

// Ranked returns a copy of the chunk annotated with its zero-based search rank
// and similarity score.
func (c ResumeChunk) Ranked(rank int, score float64) ResumeChunk {
	meta := make(map[string]string, len(c.Metadata)+2)
	for k, v := range c.Metadata {
		meta[k] = v
	}
	meta[MetaRank] = strconv.Itoa(rank)
	meta[MetaScore] = strconv.FormatFloat(score, 'f', 6, 64)
	return ResumeChunk{ChunkID: c.ChunkID, Text: c.Text, Metadata: meta}
}

// ResumeDocument is the per-file record built during a request
type ResumeDocument struct {
	ResumeID      string
	Filename      string
	ContentType   string
	Language      string
	ExtractedText string
	Chunks        []ResumeChunk
	CreatedAt     time.Time
}

// ResumeSummary is the reasoning output for a single document
type ResumeSummary struct {
	ResumeID   string
	Summary    string
	Highlights []string
}

// AnswerPayload is what the reasoning client returns for a hiring query
type AnswerPayload struct {
	Answer            string
	Justifications    []string
	ReferencedResumes []string
}

// QueryAnswer is the answer attached to a processing result
type QueryAnswer struct {
	RequestID         string   `json:"request_id"`
	Answer            string   `json:"answer"`
	Justifications    []string `json:"justifications"`
	ReferencedResumes []string `json:"referenced_resumes"`
}

// SummaryResult is a summary paired with the file it came from
type SummaryResult struct {
	ResumeID   string   `json:"resume_id"`
	Filename   string   `json:"filename"`
	Summary    string   `json:"summary"`
	Highlights []string `json:"highlights"`
}

// ProcessResult is the outcome of one processing request
type ProcessResult struct {
	RequestID   string          `json:"request_id"`
	Summaries   []SummaryResult `json:"summaries"`
	QueryAnswer *QueryAnswer    `json:"query_answer"`
}
