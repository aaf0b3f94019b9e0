package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// InitConfig writes a commented default configuration to the default path.
//
// Returns the path written. Fails if the file exists and force is false.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	return path, InitConfigToPath(path, force)
}

// InitConfigToPath writes a commented default configuration to path.
func InitConfigToPath(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := GenerateConfigYAML(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateConfigYAML renders cfg as a commented YAML document.
func GenerateConfigYAML(cfg *Config) ([]byte, error) {
	root := mapping()

	logging := mapping()
	put(logging, "level", "DEBUG, INFO, WARN or ERROR", str(cfg.Logging.Level))
	put(logging, "format", "text or json", str(cfg.Logging.Format))
	put(logging, "output", "stdout, stderr or a file path", str(cfg.Logging.Output))
	put(root, "logging", "", logging)

	rateLimit := mapping()
	put(rateLimit, "enabled", "", boolean(cfg.Server.RateLimit.Enabled))
	put(rateLimit, "requests_per_second", "Sustained requests per owner", float(cfg.Server.RateLimit.RequestsPerSecond))
	put(rateLimit, "burst", "", integer(int64(cfg.Server.RateLimit.Burst)))

	server := mapping()
	put(server, "address", "API listen address", str(cfg.Server.Address))
	put(server, "shutdown_timeout", "", duration(cfg.Server.ShutdownTimeout))
	put(server, "request_timeout", "Deadline of each request; expiry surfaces as a timeout error", duration(cfg.Server.RequestTimeout))
	put(server, "rate_limit", "Per-owner token bucket", rateLimit)
	put(root, "server", "", server)

	metricsNode := mapping()
	put(metricsNode, "enabled", "", boolean(cfg.Metrics.Enabled))
	put(metricsNode, "port", "", integer(int64(cfg.Metrics.Port)))
	put(root, "metrics", "Prometheus endpoint", metricsNode)

	objectNode := mapping()
	put(objectNode, "type", "memory, fs or s3", str(cfg.Object.Type))
	put(objectNode, "fs", "", anyMap(cfg.Object.FS))
	s3Node := mapping()
	put(s3Node, "bucket", "", str(""))
	put(s3Node, "region", "", str("us-east-1"))
	put(s3Node, "endpoint", "Custom endpoint (MinIO, LocalStack)", str(""))
	put(s3Node, "key_prefix", "", str(""))
	put(s3Node, "force_path_style", "", boolean(false))
	put(objectNode, "s3", "Credentials default to the AWS credential chain", s3Node)
	put(root, "object", "Object store holding file bytes", objectNode)

	metaNode := mapping()
	put(metaNode, "type", "memory, badger or sql", str(cfg.Metadata.Type))
	put(metaNode, "badger", "", anyMap(cfg.Metadata.Badger))
	sqlNode := mapping()
	put(sqlNode, "dialect", "postgres or duckdb", str(fmt.Sprint(cfg.Metadata.SQL["dialect"])))
	put(sqlNode, "dsn", "Connection string (postgres) or database file (duckdb, empty = in-memory)", str(""))
	put(metaNode, "sql", "", sqlNode)
	put(root, "metadata", "Metadata store holding file and folder records", metaNode)

	driveNode := mapping()
	put(driveNode, "presign_ttl", "Lifetime of download URLs", duration(cfg.Drive.PresignTTL))
	put(driveNode, "max_upload_bytes", "0 = unlimited", integer(cfg.Drive.MaxUploadBytes))
	put(driveNode, "storage_limit_bytes", "Default per-owner quota, trash included (0 = unlimited)", integer(cfg.Drive.StorageLimitBytes))
	ownerLimits := mapping()
	for owner, limit := range cfg.Drive.OwnerLimits {
		put(ownerLimits, owner, "", integer(limit))
	}
	put(driveNode, "owner_limits", "Per-owner quota overrides", ownerLimits)
	put(driveNode, "signing_secret", "Signs memory/fs download URLs; empty generates one per start", str(cfg.Drive.SigningSecret))
	put(driveNode, "public_url", "Externally reachable base URL", str(cfg.Drive.PublicURL))
	put(root, "drive", "", driveNode)

	gcNode := mapping()
	put(gcNode, "enabled", "", boolean(cfg.GC.Enabled))
	put(gcNode, "interval", "", duration(cfg.GC.Interval))
	put(gcNode, "batch_size", "Objects per delete call (max 1000)", integer(int64(cfg.GC.BatchSize)))
	put(gcNode, "grace_period", "Unreferenced objects younger than this are kept", duration(cfg.GC.GracePeriod))
	put(gcNode, "trash_retention", "Purge trash older than this (0 = never)", duration(cfg.GC.TrashRetention))
	put(gcNode, "dry_run", "", boolean(cfg.GC.DryRun))
	put(root, "gc", "Reconciliation sweep: orphaned objects, dangling records, expired trash", gcNode)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	doc := &yaml.Node{
		Kind:        yaml.DocumentNode,
		HeadComment: "# DittoDrive Configuration File\n#\n# Every key can be overridden with DITTODRIVE_<SECTION>_<KEY>,\n# e.g. DITTODRIVE_LOGGING_LEVEL=DEBUG.",
		Content:     []*yaml.Node{root},
	}
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}

func mapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode}
}

func put(m *yaml.Node, key, comment string, value *yaml.Node) {
	k := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
	if comment != "" {
		k.HeadComment = "# " + comment
	}
	m.Content = append(m.Content, k, value)
}

func str(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func boolean(v bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v)}
}

func integer(v int64) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(v, 10)}
}

func float(v float64) *yaml.Node {
	value := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(value, ".eE") {
		value += ".0"
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: value}
}

func duration(d time.Duration) *yaml.Node {
	return str(d.String())
}

// anyMap encodes a store options section.
func anyMap(m map[string]any) *yaml.Node {
	n := &yaml.Node{}
	if err := n.Encode(m); err != nil {
		return mapping()
	}
	return n
}
