// Package config handles reading and writing .csvstats/config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override the config file.
const (
	EnvAPIURL = "CSVSTATS_API_URL"
	EnvHome   = "CSVSTATS_HOME"
)

// Config is the top-level structure for .csvstats/config.yaml.
type Config struct {
	Version int           `yaml:"version"`
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
	Uploads UploadsConfig `yaml:"uploads"`
}

// APIConfig describes how to reach the upload pipeline API.
type APIConfig struct {
	BaseURL       string `yaml:"base_url"`
	Timeout       int    `yaml:"timeout"`        // seconds
	UploadTimeout int    `yaml:"upload_timeout"` // seconds, 0 = no limit
}

// StorageConfig selects where the session token is persisted.
type StorageConfig struct {
	Backend string `yaml:"backend"` // "file" | "sqlite" | "memory"
}

// LogConfig controls the event log.
type LogConfig struct {
	Level string `yaml:"level"` // "debug" | "info" | "warn" | "error"
}

// UploadsConfig controls the uploads page.
type UploadsConfig struct {
	RefreshInterval int  `yaml:"refresh_interval"` // seconds, 0 = manual refresh only
	HistoryCache    bool `yaml:"history_cache"`
}

const configDir = ".csvstats"
const configFile = "config.yaml"

// Dir returns the .csvstats directory inside home.
func Dir(home string) string {
	return filepath.Join(home, configDir)
}

// ResolveHome picks the directory that holds .csvstats/.
// An explicit flag value wins, then $CSVSTATS_HOME, then the user's home directory.
func ResolveHome(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env := os.Getenv(EnvHome); env != "" {
		return env, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return home, nil
}

// ReadConfig reads .csvstats/config.yaml from the given home directory.
// Returns an error if the file is not found or YAML is malformed.
func ReadConfig(home string) (*Config, error) {
	path := filepath.Join(Dir(home), configFile)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Start from defaults so files written by older versions keep sane values.
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Load reads the config if it exists, falls back to defaults when it does not,
// and applies environment overrides.
func Load(home string) (*Config, error) {
	cfg, err := ReadConfig(home)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = DefaultConfig()
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.API.BaseURL = v
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
}

// WriteConfig writes cfg to .csvstats/config.yaml in the given home directory.
// Creates the .csvstats/ directory if it does not exist.
func WriteConfig(home string, cfg *Config) error {
	dirPath := Dir(home)
	if err := os.MkdirAll(dirPath, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	path := filepath.Join(dirPath, configFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		API: APIConfig{
			BaseURL:       "http://localhost:8080",
			Timeout:       30,
			UploadTimeout: 0,
		},
		Storage: StorageConfig{
			Backend: "file",
		},
		Log: LogConfig{
			Level: "info",
		},
		Uploads: UploadsConfig{
			RefreshInterval: 0,
			HistoryCache:    true,
		},
	}
}

// RequestTimeout returns the per-request timeout for ordinary API calls.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.API.Timeout) * time.Second
}

// UploadTimeout returns the timeout for a whole upload, 0 meaning none.
func (c *Config) UploadTimeout() time.Duration {
	return time.Duration(c.API.UploadTimeout) * time.Second
}

// RefreshInterval returns the uploads auto-refresh period, 0 meaning disabled.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Uploads.RefreshInterval) * time.Second
}
