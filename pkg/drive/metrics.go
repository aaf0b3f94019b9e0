package drive

import "time"

// Metrics receives orchestrator observations. pkg/metrics provides the
// prometheus implementation.
type Metrics interface {
	// ObserveOperation records one operation; kind is "" on success.
	ObserveOperation(op string, duration time.Duration, kind Kind)

	// RecordLeak counts an object left behind by a tolerated step failure.
	RecordLeak(op string)

	// RecordPresignFallbacks counts URLs served from the cached value.
	RecordPresignFallbacks(n int)

	// RecordQuotaRejection counts uploads refused by the quota check.
	RecordQuotaRejection()
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(string, time.Duration, Kind) {}
func (noopMetrics) RecordLeak(string)                            {}
func (noopMetrics) RecordPresignFallbacks(int)                   {}
func (noopMetrics) RecordQuotaRejection()                        {}
