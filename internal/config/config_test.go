package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigYAMLRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := DefaultConfig()
	cfg.API.BaseURL = "https://api.example.com"
	cfg.Storage.Backend = "sqlite"
	cfg.Uploads.RefreshInterval = 15

	if err := WriteConfig(tmpDir, cfg); err != nil {
		t.Fatalf("WriteConfig failed: %v", err)
	}

	loaded, err := ReadConfig(tmpDir)
	if err != nil {
		t.Fatalf("ReadConfig failed: %v", err)
	}

	if loaded.API.BaseURL != "https://api.example.com" {
		t.Errorf("API.BaseURL: got %q, want %q", loaded.API.BaseURL, "https://api.example.com")
	}
	if loaded.Storage.Backend != "sqlite" {
		t.Errorf("Storage.Backend: got %q, want %q", loaded.Storage.Backend, "sqlite")
	}
	if loaded.RefreshInterval() != 15*time.Second {
		t.Errorf("RefreshInterval: got %v, want 15s", loaded.RefreshInterval())
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.API.BaseURL != "http://localhost:8080" {
		t.Errorf("default BaseURL: got %q", cfg.API.BaseURL)
	}
	if cfg.RequestTimeout() != 30*time.Second {
		t.Errorf("default RequestTimeout: got %v, want 30s", cfg.RequestTimeout())
	}
	if cfg.UploadTimeout() != 0 {
		t.Errorf("default UploadTimeout: got %v, want 0", cfg.UploadTimeout())
	}
	if cfg.Storage.Backend != "file" {
		t.Errorf("default Storage.Backend: got %q, want %q", cfg.Storage.Backend, "file")
	}
}

func TestPartialConfigKeepsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	partial := `version: 1
api:
  base_url: http://10.0.0.5:8080
`
	configPath := filepath.Join(tmpDir, ".csvstats")
	if err := os.MkdirAll(configPath, 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configPath, "config.yaml"), []byte(partial), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := ReadConfig(tmpDir)
	if err != nil {
		t.Fatalf("ReadConfig failed: %v", err)
	}
	if cfg.API.BaseURL != "http://10.0.0.5:8080" {
		t.Errorf("BaseURL: got %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 30 {
		t.Errorf("Timeout should keep default, got %d", cfg.API.Timeout)
	}
	if cfg.Storage.Backend != "file" {
		t.Errorf("Storage.Backend should keep default, got %q", cfg.Storage.Backend)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:8080" {
		t.Errorf("BaseURL: got %q", cfg.API.BaseURL)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(Dir(tmpDir), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(Dir(tmpDir), "config.yaml"), []byte("api: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(tmpDir); err == nil {
		t.Error("Load should fail on malformed YAML")
	}
}

func TestEnvOverridesBaseURL(t *testing.T) {
	t.Setenv(EnvAPIURL, "https://staging.example.com/")
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.API.BaseURL != "https://staging.example.com" {
		t.Errorf("BaseURL: got %q, want trailing slash trimmed", cfg.API.BaseURL)
	}
}

func TestResolveHome(t *testing.T) {
	if got, _ := ResolveHome("/explicit"); got != "/explicit" {
		t.Errorf("flag value: got %q", got)
	}
	t.Setenv(EnvHome, "/from-env")
	if got, _ := ResolveHome(""); got != "/from-env" {
		t.Errorf("env value: got %q", got)
	}
}
