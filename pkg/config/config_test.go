package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolateConfigDir points the default config location at a temp dir.
func isolateConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return dir
}

func TestLoad_DefaultConfig(t *testing.T) {
	isolateConfigDir(t)
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	configContent := `
logging:
  level: "info"

object:
  type: "memory"

metadata:
  type: "memory"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected normalized level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Server.Address != ":8080" {
		t.Errorf("Expected default address ':8080', got %q", cfg.Server.Address)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Drive.PresignTTL != time.Hour {
		t.Errorf("Expected default presign_ttl 1h, got %v", cfg.Drive.PresignTTL)
	}
	if cfg.Drive.PublicURL != "http://localhost:8080" {
		t.Errorf("Expected derived public_url, got %q", cfg.Drive.PublicURL)
	}
	if cfg.Object.Type != "memory" {
		t.Errorf("Expected object type 'memory', got %q", cfg.Object.Type)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	isolateConfigDir(t)
	nonExistentPath := filepath.Join(t.TempDir(), "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error with missing config file, got: %v", err)
	}

	if cfg.Object.Type != "fs" {
		t.Errorf("Expected default object type 'fs', got %q", cfg.Object.Type)
	}
	if cfg.Metadata.Type != "badger" {
		t.Errorf("Expected default metadata type 'badger', got %q", cfg.Metadata.Type)
	}
}

func TestLoad_DefaultLocation(t *testing.T) {
	dir := isolateConfigDir(t)
	if err := os.MkdirAll(filepath.Join(dir, "dittodrive"), 0755); err != nil {
		t.Fatal(err)
	}
	configContent := "logging:\n  level: WARN\n"
	if err := os.WriteFile(filepath.Join(dir, "dittodrive", "config.yaml"), []byte(configContent), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected level 'WARN' from default location, got %q", cfg.Logging.Level)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	isolateConfigDir(t)
	configPath := filepath.Join(t.TempDir(), "invalid.yaml")

	configContent := `
logging:
  level: INFO
  invalid yaml here [[[
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_InvalidValue(t *testing.T) {
	isolateConfigDir(t)
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	if err := os.WriteFile(configPath, []byte("object:\n  type: tape\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected validation error for unknown object type")
	}
}

func TestLoad_TOML(t *testing.T) {
	isolateConfigDir(t)
	configPath := filepath.Join(t.TempDir(), "config.toml")

	configContent := `
[logging]
level = "WARN"
format = "json"

[object]
type = "memory"

[drive]
storage_limit_bytes = 1048576

[drive.owner_limits]
alice = 2048
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load TOML config: %v", err)
	}

	if cfg.Logging.Format != "json" {
		t.Errorf("Expected format 'json', got %q", cfg.Logging.Format)
	}
	if cfg.Drive.StorageLimitBytes != 1048576 {
		t.Errorf("Expected storage limit 1048576, got %d", cfg.Drive.StorageLimitBytes)
	}
	if cfg.Drive.OwnerLimits["alice"] != 2048 {
		t.Errorf("Expected alice limit 2048, got %d", cfg.Drive.OwnerLimits["alice"])
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	isolateConfigDir(t)
	t.Setenv("DITTODRIVE_LOGGING_LEVEL", "ERROR")
	t.Setenv("DITTODRIVE_GC_TRASH_RETENTION", "72h")
	t.Setenv("DITTODRIVE_METADATA_TYPE", "memory")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("logging:\n  level: INFO\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level 'ERROR' from env var, got %q", cfg.Logging.Level)
	}
	if cfg.GC.TrashRetention != 72*time.Hour {
		t.Errorf("Expected trash retention 72h from env var, got %v", cfg.GC.TrashRetention)
	}
	if cfg.Metadata.Type != "memory" {
		t.Errorf("Expected metadata type 'memory' from env var, got %q", cfg.Metadata.Type)
	}
}

func TestGetDefaultConfig(t *testing.T) {
	isolateConfigDir(t)
	cfg := GetDefaultConfig()

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if !cfg.GC.Enabled {
		t.Error("Expected gc enabled in the default config")
	}
	if cfg.GC.TrashRetention != 30*24*time.Hour {
		t.Errorf("Expected 30 day trash retention, got %v", cfg.GC.TrashRetention)
	}
	if cfg.GC.BatchSize != 1000 {
		t.Errorf("Expected batch size 1000, got %d", cfg.GC.BatchSize)
	}
	if cfg.Object.FS["path"] == "" {
		t.Error("Expected a default fs path")
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Default config must validate: %v", err)
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	dir := isolateConfigDir(t)
	path := GetDefaultConfigPath()

	if path != filepath.Join(dir, "dittodrive", "config.yaml") {
		t.Errorf("Unexpected default path %q", path)
	}
	if ConfigExists() {
		t.Error("Expected no config in a fresh directory")
	}
}
