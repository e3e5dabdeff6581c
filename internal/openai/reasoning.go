package openai

import (
	"context"
	"strings"

	"github.com/cloo-solutions/talentlens/internal/domain"
	"github.com/cloo-solutions/talentlens/internal/prompts"
)

const (
	contextCharsPerResume = 2000
	contextSeparator      = "\n---\n"
)

// Summarize asks the model for a summary and highlights of one resume.
// Output that is not JSON becomes the summary verbatim with no highlights.
func (c *Client) Summarize(ctx context.Context, doc *domain.ResumeDocument) (*domain.ResumeSummary, error) {
	msg, err := c.prompts.Render(prompts.Summary, prompts.SummaryData{
		Filename: doc.Filename,
		Content:  doc.ExtractedText,
	})
	if err != nil {
		return nil, domain.ReasoningFailure(err)
	}

	content, err := c.complete(ctx, msg)
	if err != nil {
		return nil, domain.ReasoningFailure(err)
	}

	summary := &domain.ResumeSummary{ResumeID: doc.ResumeID, Highlights: []string{}}
	payload, err := parseJSON[summaryPayload](content)
	if err != nil {
		c.logger.WarnContext(ctx, "summary was not JSON, using raw content", "resume_id", doc.ResumeID)
		summary.Summary = content
		return summary, nil
	}

	summary.Summary = string(payload.Summary)
	if payload.Highlights != nil {
		summary.Highlights = payload.Highlights
	}
	return summary, nil
}

// Answer asks the model to answer query using the resumes as context.
// Output that is not JSON becomes the answer verbatim.
func (c *Client) Answer(ctx context.Context, query string, docs []*domain.ResumeDocument) (*domain.AnswerPayload, error) {
	msg, err := c.prompts.Render(prompts.Answer, prompts.AnswerData{
		Query:   query,
		Context: BuildAnswerContext(docs),
	})
	if err != nil {
		return nil, domain.ReasoningFailure(err)
	}

	content, err := c.complete(ctx, msg)
	if err != nil {
		return nil, domain.ReasoningFailure(err)
	}

	out := &domain.AnswerPayload{Justifications: []string{}, ReferencedResumes: []string{}}
	payload, err := parseJSON[answerPayload](content)
	if err != nil {
		c.logger.WarnContext(ctx, "answer was not JSON, using raw content")
		out.Answer = content
		return out, nil
	}

	out.Answer = string(payload.Answer)
	if payload.Justifications != nil {
		out.Justifications = payload.Justifications
	}
	if payload.ReferencedResumes != nil {
		out.ReferencedResumes = payload.ReferencedResumes
	}
	return out, nil
}

// BuildAnswerContext lists each resume as a header line followed by the
// first 2000 characters of its text, every part separated by "\n---\n".
func BuildAnswerContext(docs []*domain.ResumeDocument) string {
	parts := make([]string, 0, 2*len(docs))
	for _, d := range docs {
		parts = append(parts, "Resume ID: "+d.ResumeID+" Filename: "+d.Filename)
		parts = append(parts, truncateRunes(d.ExtractedText, contextCharsPerResume))
	}
	return strings.Join(parts, contextSeparator)
}

func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
