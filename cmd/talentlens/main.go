package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/talentlens/internal/cli"
	"github.com/cloo-solutions/talentlens/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "talentlens",
		Short: "Talentlens CLI - resume summaries and hiring answers",
		Long: `Talentlens CLI uploads resumes for summarization, searches indexed
resumes and reads the audit log.

Environment variables:
  TALENTLENS_API_KEY   API key for authentication (optional when the server has none)
  TALENTLENS_API_URL   API base URL (default: http://localhost:8080)`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-key", "", "API key for authentication (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.ProcessCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.LogsCmd())
	rootCmd.AddCommand(client.AuthCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
