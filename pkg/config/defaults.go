package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/dittodrive/pkg/drive"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Store-specific defaults are handled by the store factories
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyMetricsDefaults(&cfg.Metrics)
	applyObjectDefaults(&cfg.Object)
	applyMetadataDefaults(&cfg.Metadata)
	applyDriveDefaults(&cfg.Drive, cfg.Server.Address)
	applyGCDefaults(&cfg.GC)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Address == "" {
		cfg.Address = ":8080"
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = 20
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 40
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyObjectDefaults(cfg *ObjectConfig) {
	if cfg.Type == "" {
		cfg.Type = "fs"
	}
	if cfg.FS == nil {
		cfg.FS = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}

	if _, ok := cfg.FS["path"]; !ok {
		cfg.FS["path"] = filepath.Join(dataDir(), "objects")
	}
}

func applyMetadataDefaults(cfg *MetadataConfig) {
	if cfg.Type == "" {
		cfg.Type = "badger"
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if cfg.SQL == nil {
		cfg.SQL = make(map[string]any)
	}

	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = filepath.Join(dataDir(), "metadata")
	}
	if _, ok := cfg.SQL["dialect"]; !ok {
		cfg.SQL["dialect"] = "duckdb"
	}
}

func applyDriveDefaults(cfg *DriveConfig, address string) {
	if cfg.PresignTTL == 0 {
		cfg.PresignTTL = drive.DefaultPresignTTL
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = drive.DefaultMaxUploadBytes
	}
	if cfg.OwnerLimits == nil {
		cfg.OwnerLimits = make(map[string]int64)
	}
	if cfg.PublicURL == "" {
		host := address
		if strings.HasPrefix(host, ":") {
			host = "localhost" + host
		}
		cfg.PublicURL = "http://" + host
	}
}

func applyGCDefaults(cfg *GCConfig) {
	if cfg.Interval == 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 1000
	}
	if cfg.GracePeriod == 0 {
		cfg.GracePeriod = time.Hour
	}
}

// dataDir is the default root for on-disk stores.
func dataDir() string {
	return filepath.Join(getConfigDir(), "data")
}

// GetDefaultConfig returns a Config with all default values applied.
func GetDefaultConfig() *Config {
	cfg := &Config{
		GC: GCConfig{
			Enabled:        true,
			TrashRetention: 30 * 24 * time.Hour,
		},
	}
	ApplyDefaults(cfg)
	return cfg
}
