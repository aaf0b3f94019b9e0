package s3

import (
	"io"
	"sync"
	"time"
)

// S3Metrics receives per-call timings and transfer sizes from the S3 object
// store. A nil value in S3ObjectStoreConfig disables collection.
type S3Metrics interface {
	// ObserveOperation records one S3 API call ("PutObject", "CopyObject", ...)
	ObserveOperation(operation string, duration time.Duration, err error)

	// RecordBytes records bytes moved by a "read" or "write"
	RecordBytes(operation string, bytes int64)
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(string, time.Duration, error) {}
func (noopMetrics) RecordBytes(string, int64)                     {}

// countingBody reports the bytes streamed out of a GetObject body once the
// caller closes it, including partial reads.
type countingBody struct {
	io.ReadCloser
	metrics S3Metrics
	n       int64
	once    sync.Once
}

func newCountingBody(body io.ReadCloser, metrics S3Metrics) *countingBody {
	return &countingBody{ReadCloser: body, metrics: metrics}
}

func (b *countingBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	b.n += int64(n)
	return n, err
}

func (b *countingBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(func() {
		if b.n > 0 {
			b.metrics.RecordBytes("read", b.n)
		}
	})
	return err
}
