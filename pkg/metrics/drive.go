package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/dittodrive/pkg/drive"
)

// driveMetrics is the Prometheus implementation of drive.Metrics.
type driveMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	leaksTotal        *prometheus.CounterVec
	presignFallbacks  prometheus.Counter
	quotaRejections   prometheus.Counter
}

// NewDriveMetrics creates a Prometheus-backed drive.Metrics, or nil when
// metrics are disabled.
func NewDriveMetrics() drive.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newDriveMetrics(GetRegistry())
}

func newDriveMetrics(reg prometheus.Registerer) *driveMetrics {
	return &driveMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "drive_operations_total",
				Help:      "Total number of drive operations by operation and outcome kind",
			},
			[]string{"operation", "kind"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "drive_operation_duration_seconds",
				Help:      "Duration of drive operations in seconds",
				Buckets:   durationBuckets,
			},
			[]string{"operation"},
		),
		leaksTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "drive_leaked_objects_total",
				Help:      "Objects left behind by tolerated step failures, pending gc",
			},
			[]string{"operation"},
		),
		presignFallbacks: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "drive_presign_fallbacks_total",
				Help:      "URLs served from the cached value because presigning failed",
			},
		),
		quotaRejections: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "drive_quota_rejections_total",
				Help:      "Uploads refused by the storage quota",
			},
		),
	}
}

// ObserveOperation implements drive.Metrics.
func (m *driveMetrics) ObserveOperation(op string, duration time.Duration, kind drive.Kind) {
	label := string(kind)
	if label == "" {
		label = "ok"
	}
	m.operationsTotal.WithLabelValues(op, label).Inc()
	m.operationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordLeak implements drive.Metrics.
func (m *driveMetrics) RecordLeak(op string) {
	m.leaksTotal.WithLabelValues(op).Inc()
}

// RecordPresignFallbacks implements drive.Metrics.
func (m *driveMetrics) RecordPresignFallbacks(n int) {
	m.presignFallbacks.Add(float64(n))
}

// RecordQuotaRejection implements drive.Metrics.
func (m *driveMetrics) RecordQuotaRejection() {
	m.quotaRejections.Inc()
}
