package config

import (
	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/gc"
	"github.com/marmos91/dittodrive/pkg/metrics"
	objects3 "github.com/marmos91/dittodrive/pkg/store/object/s3"
)

// MetricsResult contains all metrics components created from configuration.
// Every collector is nil when metrics are disabled; consumers fall back to
// their no-op implementations.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	Drive drive.Metrics
	S3    objects3.S3Metrics
	GC    gc.Metrics
}

// InitializeMetrics creates the metrics components when cfg.Metrics.Enabled.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{}
	}

	metrics.InitRegistry()

	return &MetricsResult{
		Server: metrics.NewServer(metrics.ServerConfig{Port: cfg.Metrics.Port}),
		Drive:  metrics.NewDriveMetrics(),
		S3:     metrics.NewS3Metrics(),
		GC:     metrics.NewGCMetrics(),
	}
}
