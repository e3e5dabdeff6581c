package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/talentlens/internal/cli"
	"github.com/cloo-solutions/talentlens/internal/cli/admin"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "talentlensd",
		Short:   "Talentlens server and admin tool",
		Long:    "Talentlens daemon for running the resume API server, applying migrations and inspecting the audit log",
		Version: version,
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.MigrateCmd())
	rootCmd.AddCommand(admin.LogsCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
