package config

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/gc"
	"github.com/marmos91/dittodrive/pkg/store/metadata"
	"github.com/marmos91/dittodrive/pkg/store/metadata/badger"
	metadatamemory "github.com/marmos91/dittodrive/pkg/store/metadata/memory"
	"github.com/marmos91/dittodrive/pkg/store/metadata/sqlstore"
	"github.com/marmos91/dittodrive/pkg/store/object"
	objectfs "github.com/marmos91/dittodrive/pkg/store/object/fs"
	objectmemory "github.com/marmos91/dittodrive/pkg/store/object/memory"
	objects3 "github.com/marmos91/dittodrive/pkg/store/object/s3"
)

// s3YAMLConfig represents S3 configuration loaded from the object.s3 section.
type s3YAMLConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
}

// CreateSigner builds the URL signer used by the memory and fs object
// stores and by the blob download endpoint.
func CreateSigner(cfg *DriveConfig) (*object.URLSigner, error) {
	secret := cfg.SigningSecret
	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("failed to generate signing secret: %w", err)
		}
		secret = hex.EncodeToString(buf)
		logger.Warn("drive.signing_secret not set, generated an ephemeral one: download URLs will not survive a restart")
	}
	return object.NewURLSigner(secret, cfg.PublicURL)
}

// CreateObjectStore creates the object store selected by cfg.Type.
//
// Supported types:
//   - "memory": in-process map (tests, demos)
//   - "fs": files under object.fs.path
//   - "s3": Amazon S3 or a compatible service
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Object store configuration
//   - signer: Signs download URLs for memory and fs (ignored by s3)
//   - s3Metrics: Optional S3 metrics (nil disables)
func CreateObjectStore(ctx context.Context, cfg *ObjectConfig, signer *object.URLSigner, s3Metrics objects3.S3Metrics) (object.Store, error) {
	switch cfg.Type {
	case "memory":
		store, err := objectmemory.NewMemoryObjectStore(ctx, signer)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "fs":
		return createFSObjectStore(ctx, cfg.FS, signer)
	case "s3":
		return createS3ObjectStore(ctx, cfg.S3, s3Metrics)
	default:
		return nil, fmt.Errorf("unknown object store type: %q", cfg.Type)
	}
}

func createFSObjectStore(ctx context.Context, options map[string]any, signer *object.URLSigner) (object.Store, error) {
	var storeCfg struct {
		Path string `mapstructure:"path"`
	}
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode fs object store config: %w", err)
	}
	if storeCfg.Path == "" {
		return nil, fmt.Errorf("fs object store: path is required")
	}

	store, err := objectfs.NewFSObjectStore(ctx, storeCfg.Path, signer)
	if err != nil {
		return nil, fmt.Errorf("failed to create fs object store: %w", err)
	}
	return store, nil
}

func createS3ObjectStore(ctx context.Context, options map[string]any, metrics objects3.S3Metrics) (object.Store, error) {
	var yamlCfg s3YAMLConfig
	if err := mapstructure.Decode(options, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 object store config: %w", err)
	}
	if yamlCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 object store: bucket is required")
	}
	if yamlCfg.Region == "" {
		return nil, fmt.Errorf("S3 object store: region is required")
	}

	client, err := objects3.NewS3ClientFromConfig(ctx,
		yamlCfg.Endpoint,
		yamlCfg.Region,
		yamlCfg.AccessKeyID,
		yamlCfg.SecretAccessKey,
		yamlCfg.ForcePathStyle,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	store, err := objects3.NewS3ObjectStore(ctx, objects3.S3ObjectStoreConfig{
		Client:    client,
		Bucket:    yamlCfg.Bucket,
		KeyPrefix: yamlCfg.KeyPrefix,
		Metrics:   metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 object store: %w", err)
	}
	return store, nil
}

// CreateMetadataStore creates the metadata store selected by cfg.Type.
//
// Supported types:
//   - "memory": in-process maps (tests, demos)
//   - "badger": embedded BadgerDB under metadata.badger.db_path
//   - "sql": PostgreSQL or DuckDB through database/sql
func CreateMetadataStore(ctx context.Context, cfg *MetadataConfig) (metadata.Store, error) {
	switch cfg.Type {
	case "memory":
		return metadatamemory.NewMemoryMetadataStore(), nil
	case "badger":
		var storeCfg badger.BadgerMetadataStoreConfig
		if err := mapstructure.Decode(cfg.Badger, &storeCfg); err != nil {
			return nil, fmt.Errorf("failed to decode badger metadata store config: %w", err)
		}
		store, err := badger.NewBadgerMetadataStore(ctx, storeCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create badger metadata store: %w", err)
		}
		return store, nil
	case "sql":
		var storeCfg sqlstore.SQLMetadataStoreConfig
		if err := mapstructure.Decode(cfg.SQL, &storeCfg); err != nil {
			return nil, fmt.Errorf("failed to decode sql metadata store config: %w", err)
		}
		store, err := sqlstore.Open(ctx, storeCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create sql metadata store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown metadata store type: %q", cfg.Type)
	}
}

// CreateService wires the drive service from the configured stores.
func CreateService(cfg *DriveConfig, objects object.Store, meta metadata.Store, metrics drive.Metrics) *drive.Service {
	return drive.New(objects, meta,
		drive.WithPresignTTL(cfg.PresignTTL),
		drive.WithMaxUploadBytes(cfg.MaxUploadBytes),
		drive.WithQuota(drive.NewQuota(cfg.StorageLimitBytes, cfg.OwnerLimits)),
		drive.WithMetrics(metrics),
	)
}

// CreateCollector wires the gc collector.
func CreateCollector(cfg *GCConfig, objects object.Store, meta metadata.Store, svc *drive.Service, metrics gc.Metrics) (*gc.Collector, error) {
	collector, err := gc.NewCollector(meta, objects, svc, gc.Config{
		Enabled:        cfg.Enabled,
		Interval:       cfg.Interval,
		BatchSize:      cfg.BatchSize,
		GracePeriod:    cfg.GracePeriod,
		TrashRetention: cfg.TrashRetention,
		DryRun:         cfg.DryRun,
	})
	if err != nil {
		return nil, err
	}
	if metrics != nil {
		collector.SetMetrics(metrics)
	}
	return collector, nil
}
