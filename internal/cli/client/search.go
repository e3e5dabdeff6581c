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

type SearchResult struct {
	ChunkID  string  `json:"chunk_id"`
	ResumeID string  `json:"resume_id"`
	Text     string  `json:"text"`
	Rank     int     `json:"rank"`
	Score    float64 `json:"score"`
}

type SearchResponse struct {
	Items []SearchResult `json:"items"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed resume chunks",
		Long:  "Runs a similarity search over every resume chunk indexed so far.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")

			params := url.Values{}
			params.Set("q", args[0])
			params.Set("limit", strconv.Itoa(limit))

			resp, err := api.Get(cmd.Context(), "/v1/resumes/search?"+params.Encode())
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			var result SearchResponse
			if err := json.Unmarshal(resp.Data, &result); err != nil {
				return fmt.Errorf("failed to parse search results: %w", err)
			}
			return printSearch(cmd.OutOrStdout(), &result, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Maximum number of results")

	return cmd
}

func printSearch(out io.Writer, result *SearchResponse, outputJSON bool) error {
	if outputJSON {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Fprintln(out, string(data))
		return nil
	}

	if len(result.Items) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}

	fmt.Fprintf(out, "Found %d results:\n\n", len(result.Items))
	for i, item := range result.Items {
		fmt.Fprintf(out, "%d. resume %s (%.3f)\n", item.Rank+1, item.ResumeID, item.Score)
		text := strings.Join(strings.Fields(item.Text), " ")
		if r := []rune(text); len(r) > 100 {
			text = string(r[:97]) + "..."
		}
		fmt.Fprintf(out, "   %s\n", text)
		if i < len(result.Items)-1 {
			fmt.Fprintln(out, strings.Repeat("-", 40))
		}
	}
	return nil
}
