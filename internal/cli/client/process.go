package client

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

type SummaryResult struct {
	ResumeID   string   `json:"resume_id"`
	Filename   string   `json:"filename"`
	Summary    string   `json:"summary"`
	Highlights []string `json:"highlights"`
}

type QueryAnswer struct {
	RequestID         string   `json:"request_id"`
	Answer            string   `json:"answer"`
	Justifications    []string `json:"justifications"`
	ReferencedResumes []string `json:"referenced_resumes"`
}

type ProcessResponse struct {
	RequestID   string          `json:"request_id"`
	Summaries   []SummaryResult `json:"summaries"`
	QueryAnswer *QueryAnswer    `json:"query_answer"`
}

// ProcessCmd creates the process command.
func ProcessCmd() *cobra.Command {
	var (
		files     []string
		userID    string
		query     string
		requestID string
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Summarize resumes and optionally answer a hiring query",
		Long: `Uploads one or more resumes (PDF, image or plain text) for extraction,
indexing and summarization. With --query the server also answers the
question against the uploaded batch.`,
		Example: `  talentlens process -f alice.pdf -f bob.png --user recruiter-1
  talentlens process -f cv.pdf --user recruiter-1 --query "Who has led a Kafka migration?"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")

			uploads := make([]Upload, 0, len(files))
			for _, f := range files {
				uploads = append(uploads, Upload{Path: f, ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(f)))})
			}

			resp, err := api.PostMultipart(cmd.Context(), "/v1/resumes/process", map[string]string{
				"user_id":    userID,
				"query":      query,
				"request_id": requestID,
			}, uploads)
			if err != nil {
				return fmt.Errorf("process failed: %w", err)
			}

			var result ProcessResponse
			if err := json.Unmarshal(resp.Data, &result); err != nil {
				return fmt.Errorf("failed to parse result: %w", err)
			}
			return printProcess(cmd.OutOrStdout(), &result, outputJSON)
		},
	}

	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "Resume file to upload (repeatable)")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "User id recorded in the audit log")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Hiring question to answer against the batch")
	cmd.Flags().StringVar(&requestID, "request-id", "", "Request id; generated by the server when omitted")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func printProcess(out io.Writer, result *ProcessResponse, outputJSON bool) error {
	if outputJSON {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintf(out, "Request: %s\n", result.RequestID)
	for _, s := range result.Summaries {
		fmt.Fprintf(out, "\n%s (%s)\n", s.Filename, s.ResumeID)
		if s.Summary != "" {
			fmt.Fprintf(out, "  %s\n", s.Summary)
		}
		for _, h := range s.Highlights {
			fmt.Fprintf(out, "  - %s\n", h)
		}
	}

	if qa := result.QueryAnswer; qa != nil {
		fmt.Fprintf(out, "\n%s\nAnswer: %s\n", strings.Repeat("-", 40), qa.Answer)
		for _, j := range qa.Justifications {
			fmt.Fprintf(out, "  - %s\n", j)
		}
		if len(qa.ReferencedResumes) > 0 {
			fmt.Fprintf(out, "Referenced: %s\n", strings.Join(qa.ReferencedResumes, ", "))
		}
	}
	return nil
}
