package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	envAPIKey = "TALENTLENS_API_KEY"
	envAPIURL = "TALENTLENS_API_URL"

	defaultAPIURL = "http://localhost:8080"
)

// GlobalConfig is the credential file written by "talentlens auth login".
type GlobalConfig struct {
	APIKey string `json:"api_key,omitempty"`
	APIURL string `json:"api_url"`
}

var (
	getConfigDirFunc  = defaultGetConfigDir
	getConfigPathFunc = defaultGetConfigPath
)

func defaultGetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "talentlens"), nil
}

func defaultGetConfigPath() (string, error) {
	configDir, err := getConfigDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

func GetConfigDir() (string, error) {
	return getConfigDirFunc()
}

func GetConfigPath() (string, error) {
	return getConfigPathFunc()
}

// LoadGlobalConfig reads the credential file. A missing file yields a nil
// config and no error.
func LoadGlobalConfig() (*GlobalConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config GlobalConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveGlobalConfig writes the credential file with 0600 permissions.
func SaveGlobalConfig(config *GlobalConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func DeleteGlobalConfig() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.Remove(configPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete config file: %w", err)
	}

	return nil
}

// CredentialSource tells where the effective API settings came from.
type CredentialSource string

const (
	SourceFlag         CredentialSource = "flag"
	SourceEnv          CredentialSource = "env"
	SourceGlobalConfig CredentialSource = "global_config"
	SourceDefault      CredentialSource = "default"
)

// Credentials is the resolved API key and base URL.
type Credentials struct {
	APIKey    string
	APIURL    string
	KeySource CredentialSource
	URLSource CredentialSource
}

// ResolveCredentials applies the cascade flag, env, global config, default
// to the key and the URL independently. An empty key is allowed: servers
// started without API keys accept anonymous requests.
func ResolveCredentials(flagAPIKey, flagAPIURL string) (Credentials, error) {
	creds := Credentials{KeySource: SourceDefault, URLSource: SourceDefault, APIURL: defaultAPIURL}

	global, err := LoadGlobalConfig()
	if err != nil {
		return creds, err
	}
	if global == nil {
		global = &GlobalConfig{}
	}

	creds.APIKey, creds.KeySource = firstSet(
		sourced{flagAPIKey, SourceFlag},
		sourced{os.Getenv(envAPIKey), SourceEnv},
		sourced{global.APIKey, SourceGlobalConfig},
	)
	if url, src := firstSet(
		sourced{flagAPIURL, SourceFlag},
		sourced{os.Getenv(envAPIURL), SourceEnv},
		sourced{global.APIURL, SourceGlobalConfig},
	); url != "" {
		creds.APIURL, creds.URLSource = url, src
	}

	return creds, nil
}

type sourced struct {
	value  string
	source CredentialSource
}

func firstSet(candidates ...sourced) (string, CredentialSource) {
	for _, c := range candidates {
		if c.value != "" {
			return c.value, c.source
		}
	}
	return "", SourceDefault
}
