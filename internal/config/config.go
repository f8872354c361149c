// Package config loads nadamark settings from a JSON file, an optional .env
// file and NADAMARK_* environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DefaultListenAddr matches the port the web client expects.
	DefaultListenAddr = ":3096"
	// DefaultMaxUploadBytes caps request bodies (imports are uploaded whole).
	DefaultMaxUploadBytes = 20 * 1024 * 1024

	containerDataDir = "/bookmarks"
)

// Config holds application configuration.
type Config struct {
	ListenAddr     string `json:"listenAddr"`
	StorageBackend string `json:"storageBackend"`
	DatabasePath   string `json:"databasePath"`
	JSONPath       string `json:"jsonPath"`
	MaxUploadBytes int64  `json:"maxUploadBytes"`
	RequestTimeout int    `json:"requestTimeout"`
	LogLevel       string `json:"logLevel"`

	CullExcludeDomains []string `json:"cullExcludeDomains"`
	CullConcurrency    int      `json:"cullConcurrency"`
	CullTimeoutSeconds int      `json:"cullTimeoutSeconds"`
}

// DefaultConfig returns the default configuration rooted at dataDir.
func DefaultConfig(dataDir string) Config {
	return Config{
		ListenAddr:         DefaultListenAddr,
		StorageBackend:     "sqlite",
		DatabasePath:       filepath.Join(dataDir, "nadamark.db"),
		JSONPath:           filepath.Join(dataDir, "bookmarks.json"),
		MaxUploadBytes:     DefaultMaxUploadBytes,
		RequestTimeout:     30,
		LogLevel:           "info",
		CullExcludeDomains: []string{"github.com", "gitlab.com"},
		CullConcurrency:    10,
		CullTimeoutSeconds: 10,
	}
}

// RequestTimeoutDuration returns RequestTimeout as a time.Duration.
func (c *Config) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// CullTimeout returns CullTimeoutSeconds as a time.Duration.
func (c *Config) CullTimeout() time.Duration {
	return time.Duration(c.CullTimeoutSeconds) * time.Second
}

// Load reads config from the JSON file at path.
// Creates the file with defaults if it doesn't exist.
func Load(path string) (*Config, error) {
	defaults := DefaultConfig(filepath.Dir(path))

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			config := defaults
			// Non-fatal: return defaults even if save fails
			_ = Save(path, &config)
			return &config, nil
		}
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	// Apply defaults for missing fields
	if config.ListenAddr == "" {
		config.ListenAddr = defaults.ListenAddr
	}
	if config.StorageBackend == "" {
		config.StorageBackend = defaults.StorageBackend
	}
	if config.DatabasePath == "" {
		config.DatabasePath = defaults.DatabasePath
	}
	if config.JSONPath == "" {
		config.JSONPath = defaults.JSONPath
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = defaults.MaxUploadBytes
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaults.RequestTimeout
	}
	if config.LogLevel == "" {
		config.LogLevel = defaults.LogLevel
	}
	if config.CullExcludeDomains == nil {
		config.CullExcludeDomains = defaults.CullExcludeDomains
	}
	if config.CullConcurrency <= 0 {
		config.CullConcurrency = defaults.CullConcurrency
	}
	if config.CullTimeoutSeconds <= 0 {
		config.CullTimeoutSeconds = defaults.CullTimeoutSeconds
	}

	return &config, nil
}

// Save writes config to the JSON file.
// Creates the directory if it doesn't exist.
func Save(path string, config *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ApplyEnv overrides config fields from NADAMARK_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("NADAMARK_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("NADAMARK_BACKEND"); v != "" {
		c.StorageBackend = v
	}
	if v := os.Getenv("NADAMARK_DB"); v != "" {
		c.DatabasePath = v
	}
	if v := os.Getenv("NADAMARK_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// FromEnvironment loads .env (if present), reads the config file and applies
// environment overrides.
func FromEnvironment() (*Config, error) {
	_ = godotenv.Load()

	path, err := FilePath()
	if err != nil {
		return nil, err
	}
	config, err := Load(path)
	if err != nil {
		return nil, err
	}
	config.ApplyEnv()
	return config, nil
}

// FilePath returns NADAMARK_CONFIG or <data dir>/config.json.
func FilePath() (string, error) {
	if v := os.Getenv("NADAMARK_CONFIG"); v != "" {
		return v, nil
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// DataDir returns /bookmarks inside a container, otherwise ~/.config/nadamark.
func DataDir() (string, error) {
	if inContainer() {
		return containerDataDir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "nadamark"), nil
}

func inContainer() bool {
	_, err := os.Stat("/.dockerenv")
	return err == nil
}
