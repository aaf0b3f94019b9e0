package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete DittoDrive configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (DITTODRIVE_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each store implementation defines its own configuration type. The Config
// struct carries type-specific sections (e.g., object.fs, metadata.badger)
// and only the section matching the selected type is decoded.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Server contains HTTP server settings
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Metrics controls the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Object selects and configures the object store
	Object ObjectConfig `mapstructure:"object" yaml:"object"`

	// Metadata selects and configures the metadata store
	Metadata MetadataConfig `mapstructure:"metadata" yaml:"metadata"`

	// Drive contains lifecycle settings
	Drive DriveConfig `mapstructure:"drive" yaml:"drive"`

	// GC configures the reconciliation sweep
	GC GCConfig `mapstructure:"gc" yaml:"gc"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Address is the listen address of the API
	Address string `mapstructure:"address" yaml:"address" validate:"required"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"required,gt=0"`

	// RequestTimeout bounds each API request, including every store call it makes
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout" validate:"required,gt=0"`

	// RateLimit throttles requests per owner
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// RateLimitConfig is a per-owner token bucket.
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// RequestsPerSecond is the sustained rate per owner
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second" validate:"gte=0"`

	// Burst is the bucket size
	Burst int `mapstructure:"burst" yaml:"burst" validate:"gte=0"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port of the metrics server
	Port int `mapstructure:"port" yaml:"port" validate:"gte=0,lte=65535"`
}

// ObjectConfig specifies object store configuration.
type ObjectConfig struct {
	// Type specifies which object store implementation to use
	// Valid values: memory, fs, s3
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory fs s3"`

	// FS contains filesystem-specific configuration (path)
	FS map[string]any `mapstructure:"fs" yaml:"fs"`

	// S3 contains S3-specific configuration (bucket, region, endpoint, ...)
	S3 map[string]any `mapstructure:"s3" yaml:"s3"`
}

// MetadataConfig specifies metadata store configuration.
type MetadataConfig struct {
	// Type specifies which metadata store implementation to use
	// Valid values: memory, badger, sql
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory badger sql"`

	// Badger contains BadgerDB-specific configuration (db_path, ...)
	Badger map[string]any `mapstructure:"badger" yaml:"badger"`

	// SQL contains database/sql configuration (dialect, dsn, max_open_conns)
	SQL map[string]any `mapstructure:"sql" yaml:"sql"`
}

// DriveConfig contains lifecycle settings.
type DriveConfig struct {
	// PresignTTL is the lifetime of download URLs
	PresignTTL time.Duration `mapstructure:"presign_ttl" yaml:"presign_ttl" validate:"gt=0"`

	// MaxUploadBytes caps a single upload (0 = unlimited)
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes" validate:"gte=0"`

	// StorageLimitBytes is the default per-owner quota (0 = unlimited)
	StorageLimitBytes int64 `mapstructure:"storage_limit_bytes" yaml:"storage_limit_bytes" validate:"gte=0"`

	// OwnerLimits overrides StorageLimitBytes per owner
	OwnerLimits map[string]int64 `mapstructure:"owner_limits" yaml:"owner_limits" validate:"dive,gte=0"`

	// SigningSecret signs download URLs of the memory and fs object stores.
	// When empty an ephemeral secret is generated at startup.
	SigningSecret string `mapstructure:"signing_secret" yaml:"signing_secret"`

	// PublicURL is the externally reachable base URL of this server, used
	// to build signed download URLs
	PublicURL string `mapstructure:"public_url" yaml:"public_url" validate:"required,url"`
}

// GCConfig configures the reconciliation sweep.
type GCConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Interval between runs
	Interval time.Duration `mapstructure:"interval" yaml:"interval" validate:"gt=0"`

	// BatchSize is the number of orphans deleted per call
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size" validate:"gt=0,lte=1000"`

	// GracePeriod protects young unreferenced objects (in-flight uploads)
	GracePeriod time.Duration `mapstructure:"grace_period" yaml:"grace_period" validate:"gt=0"`

	// TrashRetention purges trash older than this (0 = keep forever)
	TrashRetention time.Duration `mapstructure:"trash_retention" yaml:"trash_retention" validate:"gte=0"`

	// DryRun logs instead of deleting
	DryRun bool `mapstructure:"dry_run" yaml:"dry_run"`
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures environment variables and the config file location.
func setupViper(v *viper.Viper, configPath string) {
	// Example: DITTODRIVE_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("DITTODRIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only applies to keys viper knows about
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// envKeys are the scalar settings that can be set purely from the environment.
var envKeys = []string{
	"logging.level", "logging.format", "logging.output",
	"server.address", "server.shutdown_timeout", "server.request_timeout",
	"server.rate_limit.enabled", "server.rate_limit.requests_per_second", "server.rate_limit.burst",
	"metrics.enabled", "metrics.port",
	"object.type", "metadata.type",
	"drive.presign_ttl", "drive.max_upload_bytes", "drive.storage_limit_bytes",
	"drive.signing_secret", "drive.public_url",
	"gc.enabled", "gc.interval", "gc.batch_size", "gc.grace_period", "gc.trash_retention", "gc.dry_run",
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns $XDG_CONFIG_HOME/dittodrive, ~/.config/dittodrive, or
// "." when the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dittodrive")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "dittodrive")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}
