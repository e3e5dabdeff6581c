//go:build e2e

package e2e

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/cloo-solutions/talentlens/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	aliceCV = "Alice Example - Platform engineer\nBuilt Go services and ran the Kafka migration at Acme."
	bobCV   = "Bob Sample - Data scientist\nPython, pandas and forecasting models."
)

type processResult struct {
	RequestID string `json:"request_id"`
	Summaries []struct {
		ResumeID   string   `json:"resume_id"`
		Filename   string   `json:"filename"`
		Summary    string   `json:"summary"`
		Highlights []string `json:"highlights"`
	} `json:"summaries"`
	QueryAnswer *struct {
		RequestID         string   `json:"request_id"`
		Answer            string   `json:"answer"`
		Justifications    []string `json:"justifications"`
		ReferencedResumes []string `json:"referenced_resumes"`
	} `json:"query_answer"`
}

type logsPage struct {
	Items []struct {
		RequestID string  `json:"request_id"`
		UserID    string  `json:"user_id"`
		Query     *string `json:"query"`
		Result    struct {
			Summaries []struct {
				Filename string `json:"filename"`
			} `json:"summaries"`
			QueryAnswer *struct {
				Answer string `json:"answer"`
			} `json:"query_answer"`
		} `json:"result"`
	} `json:"items"`
	Cursor  string `json:"cursor"`
	HasMore bool   `json:"has_more"`
}

func TestE2E_ProcessSearchAndAudit(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	files := []formFile{{Name: "alice.txt", Data: aliceCV}, {Name: "bob.txt", Data: bobCV}}

	t.Run("health and readiness are public", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, env.Get("/health", "").Status)
		assert.Equal(t, http.StatusOK, env.Get("/ready", "").Status)
	})

	t.Run("v1 requires the api key", func(t *testing.T) {
		resp := env.Get("/v1/logs", "")
		assert.Equal(t, http.StatusUnauthorized, resp.Status)

		resp = env.Process(map[string]string{"user_id": "u1"}, files, "wrong")
		assert.Equal(t, http.StatusUnauthorized, resp.Status)
	})

	var first processResult
	t.Run("summaries only", func(t *testing.T) {
		resp := env.Process(map[string]string{"user_id": "recruiter-1", "request_id": "req-summaries"}, files, testAPIKey)
		require.Equal(t, http.StatusOK, resp.Status, resp.Error)
		require.NoError(t, json.Unmarshal(resp.Data, &first))

		assert.Equal(t, "req-summaries", first.RequestID)
		require.Len(t, first.Summaries, 2)
		assert.Equal(t, "alice.txt", first.Summaries[0].Filename)
		assert.Equal(t, "Alice Example - Platform engineer", first.Summaries[0].Summary)
		assert.Equal(t, "bob.txt", first.Summaries[1].Filename)
		assert.Nil(t, first.QueryAnswer)
	})

	t.Run("query answer", func(t *testing.T) {
		resp := env.Process(map[string]string{
			"user_id":    "recruiter-2",
			"request_id": "req-query",
			"query":      "Who has worked with kafka?",
		}, files, testAPIKey)
		require.Equal(t, http.StatusOK, resp.Status, resp.Error)

		var result processResult
		require.NoError(t, json.Unmarshal(resp.Data, &result))
		require.NotNil(t, result.QueryAnswer)
		assert.Equal(t, "req-query", result.QueryAnswer.RequestID)
		assert.Equal(t, "alice.txt", result.QueryAnswer.Answer)
		require.Len(t, result.QueryAnswer.ReferencedResumes, 1)
		assert.Equal(t, result.Summaries[0].ResumeID, result.QueryAnswer.ReferencedResumes[0])
	})

	t.Run("no files is rejected and not audited", func(t *testing.T) {
		resp := env.Process(map[string]string{"user_id": "recruiter-3", "request_id": "req-empty"}, nil, testAPIKey)
		assert.Equal(t, http.StatusBadRequest, resp.Status)
		assert.Equal(t, "INVALID_REQUEST", resp.Code)
	})

	t.Run("uploads are archived", func(t *testing.T) {
		ok, err := env.Archive.Exists(env.Ctx, storage.ObjectKey("alice.txt", []byte(aliceCV)))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("search ranks indexed chunks", func(t *testing.T) {
		resp := env.Get("/v1/resumes/search?q=python&limit=2", testAPIKey)
		require.Equal(t, http.StatusOK, resp.Status, resp.Error)

		var page struct {
			Items []struct {
				ResumeID string  `json:"resume_id"`
				Text     string  `json:"text"`
				Rank     int     `json:"rank"`
				Score    float64 `json:"score"`
			} `json:"items"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &page))
		require.NotEmpty(t, page.Items)
		assert.Equal(t, 0, page.Items[0].Rank)
		assert.Contains(t, page.Items[0].Text, "Python")
	})

	t.Run("audit log newest first with pagination", func(t *testing.T) {
		resp := env.Get("/v1/logs?limit=1", testAPIKey)
		require.Equal(t, http.StatusOK, resp.Status, resp.Error)

		var page logsPage
		require.NoError(t, json.Unmarshal(resp.Data, &page))
		require.Len(t, page.Items, 1)
		assert.Equal(t, "req-query", page.Items[0].RequestID)
		require.NotNil(t, page.Items[0].Query)
		assert.Equal(t, "Who has worked with kafka?", *page.Items[0].Query)
		require.NotNil(t, page.Items[0].Result.QueryAnswer)
		assert.True(t, page.HasMore)

		resp = env.Get("/v1/logs?limit=5&cursor="+page.Cursor, testAPIKey)
		require.Equal(t, http.StatusOK, resp.Status, resp.Error)

		var next logsPage
		require.NoError(t, json.Unmarshal(resp.Data, &next))
		require.Len(t, next.Items, 1)
		assert.Equal(t, "req-summaries", next.Items[0].RequestID)
		assert.Nil(t, next.Items[0].Query)
		assert.Nil(t, next.Items[0].Result.QueryAnswer)
		assert.Len(t, next.Items[0].Result.Summaries, 2)
		assert.False(t, next.HasMore)
	})

	t.Run("invalid cursor", func(t *testing.T) {
		resp := env.Get("/v1/logs?cursor=not-a-cursor", testAPIKey)
		assert.Equal(t, http.StatusBadRequest, resp.Status)
		assert.Equal(t, "VALIDATION_ERROR", resp.Code)
	})
}

func TestE2E_CLI(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.BuildCLI()

	workDir := t.TempDir()
	cvPath := filepath.Join(workDir, "alice.txt")
	require.NoError(t, os.WriteFile(cvPath, []byte(aliceCV), 0o644))

	out, err := env.RunCLI(workDir, "process", "-f", cvPath, "--user", "cli-user", "--query", "Who knows kafka?", "--output")
	require.NoError(t, err, out)

	var result processResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Summaries, 1)
	require.NotNil(t, result.QueryAnswer)
	assert.Equal(t, "alice.txt", result.QueryAnswer.Answer)

	out, err = env.RunCLI(workDir, "logs", "--limit", "5")
	require.NoError(t, err, out)
	assert.Contains(t, out, "user=cli-user")
	assert.Contains(t, out, "files=alice.txt")

	out, err = env.RunCLI(workDir, "search", "kafka")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Kafka migration")
}
