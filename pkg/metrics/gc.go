package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/dittodrive/pkg/gc"
)

// gcMetrics is the Prometheus implementation of gc.Metrics.
type gcMetrics struct {
	runsTotal        *prometheus.CounterVec
	runDuration      prometheus.Histogram
	orphansDeleted   prometheus.Counter
	deleteFailures   prometheus.Counter
	danglingRecords  prometheus.Gauge
	trashPurged      prometheus.Counter
	lastRunTimestamp prometheus.Gauge
}

// NewGCMetrics creates a Prometheus-backed gc.Metrics, or nil when metrics
// are disabled.
func NewGCMetrics() gc.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newGCMetrics(GetRegistry())
}

func newGCMetrics(reg prometheus.Registerer) *gcMetrics {
	f := promauto.With(reg)
	return &gcMetrics{
		runsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gc_runs_total",
			Help:      "Garbage collection runs by status",
		}, []string{"status"}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gc_run_duration_seconds",
			Help:      "Duration of garbage collection runs",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
		orphansDeleted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gc_orphans_deleted_total",
			Help:      "Orphaned objects deleted",
		}),
		deleteFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gc_failures_total",
			Help:      "Orphan deletes and trash purges that failed",
		}),
		danglingRecords: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gc_dangling_records",
			Help:      "Records referencing a missing object at the last run",
		}),
		trashPurged: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gc_trash_purged_total",
			Help:      "Trashed records purged after the retention period",
		}),
		lastRunTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gc_last_run_timestamp_seconds",
			Help:      "Unix time of the last completed run",
		}),
	}
}

// RecordRun implements gc.Metrics.
func (m *gcMetrics) RecordRun(stats *gc.Stats, err error) {
	m.runsTotal.WithLabelValues(status(err)).Inc()
	m.runDuration.Observe(stats.Duration().Seconds())
	m.orphansDeleted.Add(float64(stats.DeletedCount))
	m.deleteFailures.Add(float64(stats.FailedCount))
	m.trashPurged.Add(float64(stats.PurgedTrashCount))
	if err == nil {
		m.danglingRecords.Set(float64(len(stats.Dangling)))
		m.lastRunTimestamp.Set(float64(stats.EndTime.Unix()))
	}
}
