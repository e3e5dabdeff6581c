package domain

import "time"

// AuditSummary is the per-resume part of an audit entry
type AuditSummary struct {
	ResumeID   string   `json:"resume_id"`
	Filename   string   `json:"filename"`
	Highlights []string `json:"highlights"`
}

// AuditAnswer is the query answer part of an audit entry
type AuditAnswer struct {
	Answer            string   `json:"answer"`
	Justifications    []string `json:"justifications"`
	ReferencedResumes []string `json:"referenced_resumes"`
}

// AuditResult is the serialisable snapshot stored with each audit entry
type AuditResult struct {
	Summaries   []AuditSummary `json:"summaries"`
	QueryAnswer *AuditAnswer   `json:"query_answer,omitempty"`
}

// AuditLog is the immutable record written once per processed request
type AuditLog struct {
	ID        string
	RequestID string
	UserID    string
	Timestamp time.Time
	Query     *string
	Result    AuditResult
}

// NewAuditLog builds an audit entry from a processing result.
// An empty query is recorded as absent.
func NewAuditLog(id, userID, query string, result *ProcessResult, timestamp time.Time) *AuditLog {
	entry := &AuditLog{
		ID:        id,
		RequestID: result.RequestID,
		UserID:    userID,
		Timestamp: timestamp,
		Result: AuditResult{
			Summaries: make([]AuditSummary, 0, len(result.Summaries)),
		},
	}
	if query != "" {
		q := query
		entry.Query = &q
	}

	for _, s := range result.Summaries {
		entry.Result.Summaries = append(entry.Result.Summaries, AuditSummary{
			ResumeID:   s.ResumeID,
			Filename:   s.Filename,
			Highlights: s.Highlights,
		})
	}

	if result.QueryAnswer != nil {
		entry.Result.QueryAnswer = &AuditAnswer{
			Answer:            result.QueryAnswer.Answer,
			Justifications:    result.QueryAnswer.Justifications,
			ReferencedResumes: result.QueryAnswer.ReferencedResumes,
		}
	}

	return entry
}
