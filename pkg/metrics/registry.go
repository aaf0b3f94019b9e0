// Package metrics provides Prometheus metrics collection for DittoDrive
// components.
//
// All metrics are optional: if the registry is not initialized, constructors
// return nil and components fall back to their no-op implementations.
//
// Usage:
//
//	metrics.InitRegistry()
//
//	driveMetrics := metrics.NewDriveMetrics()
//	s3Metrics := metrics.NewS3Metrics()
//
//	svc := drive.New(objects, meta, drive.WithMetrics(driveMetrics))
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "dittodrive"

var (
	// registry is written once by InitRegistry and read afterwards.
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry with the Go
// runtime and process collectors. Subsequent calls are ignored.
func InitRegistry() {
	registryOnce.Do(func() {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		registry = reg
	})
}

// GetRegistry returns the global registry, or nil when metrics are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled returns true if InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}

// durationBuckets covers store round trips from 5ms to 30s.
var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
