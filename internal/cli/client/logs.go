package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

type AuditSummary struct {
	ResumeID   string   `json:"resume_id"`
	Filename   string   `json:"filename"`
	Highlights []string `json:"highlights"`
}

type AuditAnswer struct {
	Answer            string   `json:"answer"`
	Justifications    []string `json:"justifications"`
	ReferencedResumes []string `json:"referenced_resumes"`
}

type AuditLog struct {
	ID        string  `json:"id"`
	RequestID string  `json:"request_id"`
	UserID    string  `json:"user_id"`
	Timestamp string  `json:"timestamp"`
	Query     *string `json:"query"`
	Result    struct {
		Summaries   []AuditSummary `json:"summaries"`
		QueryAnswer *AuditAnswer   `json:"query_answer,omitempty"`
	} `json:"result"`
}

type LogsResponse struct {
	Items   []AuditLog `json:"items"`
	Cursor  string     `json:"cursor,omitempty"`
	HasMore bool       `json:"has_more"`
}

// LogsCmd creates the logs command.
func LogsCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List audit log entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")

			params := url.Values{}
			params.Set("limit", strconv.Itoa(limit))
			if cursor != "" {
				params.Set("cursor", cursor)
			}

			resp, err := api.Get(cmd.Context(), "/v1/logs?"+params.Encode())
			if err != nil {
				return fmt.Errorf("listing logs failed: %w", err)
			}

			var result LogsResponse
			if err := json.Unmarshal(resp.Data, &result); err != nil {
				return fmt.Errorf("failed to parse logs: %w", err)
			}
			return printLogs(cmd.OutOrStdout(), &result, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from a previous page")

	return cmd
}

func printLogs(out io.Writer, result *LogsResponse, outputJSON bool) error {
	if outputJSON {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Fprintln(out, string(data))
		return nil
	}

	if len(result.Items) == 0 {
		fmt.Fprintln(out, "No audit entries.")
		return nil
	}

	for _, e := range result.Items {
		files := make([]string, 0, len(e.Result.Summaries))
		for _, s := range e.Result.Summaries {
			files = append(files, s.Filename)
		}
		fmt.Fprintf(out, "%s  %s  user=%s  files=%s\n", e.Timestamp, e.RequestID, e.UserID, strings.Join(files, ","))
		if e.Query != nil {
			fmt.Fprintf(out, "    query: %s\n", *e.Query)
		}
	}
	if result.HasMore && result.Cursor != "" {
		fmt.Fprintf(out, "\nMore entries available. Use --cursor %s\n", result.Cursor)
	}
	return nil
}
