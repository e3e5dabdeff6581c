package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// AuthCmd creates the auth parent command
func AuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage stored credentials",
		Long:  "Login, logout, and check which API key and URL the talentlens CLI uses",
	}

	cmd.AddCommand(AuthLoginCmd())
	cmd.AddCommand(AuthLogoutCmd())
	cmd.AddCommand(AuthStatusCmd())

	return cmd
}

func AuthLoginCmd() *cobra.Command {
	var apiKey string
	var apiURL string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store API key and URL",
		Long:  "Store API key and URL in the global config (~/.config/talentlens/config.json)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthLogin(cmd.InOrStdin(), cmd.OutOrStdout(), apiKey, apiURL)
		},
	}

	cmd.Flags().StringVar(&apiKey, "key", "", "API key; prompted for when omitted")
	cmd.Flags().StringVar(&apiURL, "url", defaultAPIURL, "API URL")

	return cmd
}

func AuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := DeleteGlobalConfig(); err != nil {
				return fmt.Errorf("failed to logout: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Successfully logged out")
			return nil
		},
	}
}

func AuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show effective credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			flagKey, _ := cmd.Flags().GetString("api-key")
			flagURL, _ := cmd.Flags().GetString("api-url")
			creds, err := ResolveCredentials(flagKey, flagURL)
			if err != nil {
				return err
			}
			return writeStatus(cmd.OutOrStdout(), creds, outputJSON)
		},
	}
}

func runAuthLogin(in io.Reader, out io.Writer, apiKey, apiURL string) error {
	if apiKey == "" {
		fmt.Fprint(out, "Enter API key: ")
		input, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed to read API key: %w", err)
		}
		apiKey = strings.TrimSpace(input)
	}

	if apiKey == "" {
		return fmt.Errorf("API key cannot be empty")
	}

	if err := SaveGlobalConfig(&GlobalConfig{APIKey: apiKey, APIURL: apiURL}); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	fmt.Fprintln(out, "Successfully logged in")
	return nil
}

func writeStatus(out io.Writer, creds Credentials, outputJSON bool) error {
	if outputJSON {
		status := map[string]any{
			"authenticated": creds.APIKey != "",
			"key_source":    string(creds.KeySource),
			"api_url":       creds.APIURL,
			"url_source":    string(creds.URLSource),
		}
		if creds.APIKey != "" {
			status["api_key"] = maskAPIKey(creds.APIKey)
		}
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	if creds.APIKey == "" {
		fmt.Fprintln(out, "API Key: none (anonymous requests)")
	} else {
		fmt.Fprintf(out, "API Key: %s (%s)\n", maskAPIKey(creds.APIKey), creds.KeySource)
	}
	fmt.Fprintf(out, "API URL: %s (%s)\n", creds.APIURL, creds.URLSource)
	return nil
}

func maskAPIKey(key string) string {
	if len(key) < 12 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
