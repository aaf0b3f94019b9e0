// Package gc reconciles the object store with the metadata store.
//
// The drive never rolls back across the two stores, so partial failures
// leave residue that this sweep reclaims or reports:
//   - Orphaned objects: bytes no record references (crash between object
//     write and record write, tolerated rename leaks).
//   - Dangling records: records whose object is gone (crash between object
//     delete and record delete during purge). These are reported, not
//     repaired.
//   - Expired trash: trashed records older than the retention period are
//     purged through the drive.
package gc

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/store/metadata"
	"github.com/marmos91/dittodrive/pkg/store/object"
)

// Purger removes one trashed record and its object. *drive.Service
// implements it.
type Purger interface {
	PurgeRecord(ctx context.Context, record *metadata.FileRecord) error
}

// Metrics receives the outcome of each run.
type Metrics interface {
	RecordRun(stats *Stats, err error)
}

// Config contains configuration for the collector.
type Config struct {
	// Enabled controls whether the background worker runs.
	Enabled bool

	// Interval is how often to run (default: 24h).
	Interval time.Duration

	// BatchSize is how many orphans to delete per call (default: 1000, the
	// S3 DeleteObjects limit).
	BatchSize int

	// GracePeriod protects objects younger than this from orphan deletion,
	// so uploads between object write and record write survive (default: 1h).
	GracePeriod time.Duration

	// TrashRetention purges trashed records older than this. 0 disables.
	TrashRetention time.Duration

	// DryRun logs what would be deleted without deleting.
	DryRun bool

	// RunTimeout bounds one background run (default: 10m).
	RunTimeout time.Duration
}

// Collector periodically reconciles the stores.
//
// Thread Safety: Safe for concurrent use. Runs are serialized.
type Collector struct {
	meta    metadata.Store
	objects object.GarbageCollectable
	purger  Purger
	metrics Metrics
	config  Config
	now     func() time.Time

	runMu    sync.Mutex
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewCollector creates a collector. It is not started.
//
// Parameters:
//   - meta: Metadata store holding the records
//   - objects: Object store to scan; must implement object.GarbageCollectable
//   - purger: Used for trash retention; may be nil when TrashRetention is 0
//   - config: Collector configuration
//
// Returns:
//   - *Collector: Initialized collector (not started)
//   - error: Returns error if the object store cannot be listed
func NewCollector(meta metadata.Store, objects object.Store, purger Purger, config Config) (*Collector, error) {
	gcStore, ok := objects.(object.GarbageCollectable)
	if !ok {
		return nil, fmt.Errorf("object store does not implement GarbageCollectable")
	}
	if config.TrashRetention > 0 && purger == nil {
		return nil, fmt.Errorf("trash retention requires a purger")
	}

	if config.Interval <= 0 {
		config.Interval = 24 * time.Hour
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 1000
	}
	if config.GracePeriod <= 0 {
		config.GracePeriod = time.Hour
	}
	if config.RunTimeout <= 0 {
		config.RunTimeout = 10 * time.Minute
	}

	return &Collector{
		meta:    meta,
		objects: gcStore,
		purger:  purger,
		config:  config,
		now:     time.Now,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// SetMetrics attaches a metrics sink.
func (c *Collector) SetMetrics(m Metrics) {
	c.metrics = m
}

// Start launches the background worker. A disabled collector does nothing.
func (c *Collector) Start() {
	if !c.config.Enabled {
		logger.Info("Garbage collection disabled")
		close(c.doneCh)
		return
	}

	logger.Info("Starting garbage collector: interval=%s batch_size=%d grace=%s retention=%s dry_run=%v",
		c.config.Interval, c.config.BatchSize, c.config.GracePeriod, c.config.TrashRetention, c.config.DryRun)

	go c.worker()
}

// Stop signals the worker and waits for an in-progress run to finish or for
// ctx to expire. Safe to call multiple times.
func (c *Collector) Stop(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.stopCh) })

	select {
	case <-c.doneCh:
		logger.Info("Garbage collector stopped")
		return nil
	case <-ctx.Done():
		logger.Warn("Garbage collector shutdown timeout")
		return ctx.Err()
	}
}

// RunNow runs one collection and blocks until it completes.
func (c *Collector) RunNow(ctx context.Context) (*Stats, error) {
	logger.Info("Running garbage collection (manual trigger)...")
	return c.collect(ctx)
}

func (c *Collector) worker() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.config.RunTimeout)
			stats, err := c.collect(ctx)
			cancel()

			if err != nil {
				logger.Error("Garbage collection failed: %v", err)
			} else {
				logger.Info("Garbage collection completed: %s", stats.Summary())
			}

		case <-c.stopCh:
			return
		}
	}
}

// collect runs the four phases:
//  1. Collect storage keys referenced by any record
//  2. List existing objects
//  3. Delete orphans older than the grace period; report dangling records
//  4. Purge expired trash
func (c *Collector) collect(ctx context.Context) (stats *Stats, err error) {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	stats = &Stats{StartTime: time.Now(), DryRun: c.config.DryRun}
	defer func() {
		stats.EndTime = time.Now()
		if c.metrics != nil {
			c.metrics.RecordRun(stats, err)
		}
	}()

	records, err := c.meta.ScanFiles(ctx, metadata.FileFilter{})
	if err != nil {
		return stats, fmt.Errorf("failed to scan records: %w", err)
	}

	referenced := make(map[string]struct{}, len(records))
	for _, r := range records {
		referenced[drive.StorageKey(r.OwnerID, r.ObjectKey)] = struct{}{}
	}
	stats.ReferencedCount = uint64(len(referenced))

	existing, err := c.objects.ListKeys(ctx, "")
	if err != nil {
		return stats, fmt.Errorf("failed to list objects: %w", err)
	}
	stats.ExistingCount = uint64(len(existing))

	present := make(map[string]struct{}, len(existing))
	cutoff := c.now().Add(-c.config.GracePeriod)
	var orphaned []string
	for _, info := range existing {
		present[info.Key] = struct{}{}
		if _, ok := referenced[info.Key]; ok {
			continue
		}
		if info.LastModified.After(cutoff) {
			stats.YoungOrphanCount++
			continue
		}
		orphaned = append(orphaned, info.Key)
	}
	sort.Strings(orphaned)
	stats.OrphanedCount = uint64(len(orphaned))

	for key := range referenced {
		if _, ok := present[key]; !ok {
			stats.Dangling = append(stats.Dangling, key)
		}
	}
	sort.Strings(stats.Dangling)
	for _, key := range stats.Dangling {
		logger.Warn("GC: record references missing object '%s'", key)
	}

	if err := c.deleteOrphans(ctx, orphaned, stats); err != nil {
		return stats, err
	}

	if err := c.expireTrash(ctx, stats); err != nil {
		return stats, err
	}

	logger.Info("GC: %s", stats.Summary())
	return stats, nil
}

func (c *Collector) deleteOrphans(ctx context.Context, orphaned []string, stats *Stats) error {
	if len(orphaned) == 0 {
		return nil
	}

	if c.config.DryRun {
		logger.Info("GC: DRY RUN - would delete %d orphaned objects", len(orphaned))
		for i, key := range orphaned {
			if i == 10 {
				logger.Info("  ... and %d more", len(orphaned)-10)
				break
			}
			logger.Info("  - %s", key)
		}
		return nil
	}

	for i := 0; i < len(orphaned); i += c.config.BatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := min(i+c.config.BatchSize, len(orphaned))
		batch := orphaned[i:end]

		failures, err := c.objects.DeleteBatch(ctx, batch)
		if err != nil {
			logger.Warn("GC: batch delete failed: %v", err)
			stats.FailedCount += uint64(len(batch))
			continue
		}

		stats.DeletedCount += uint64(len(batch) - len(failures))
		stats.FailedCount += uint64(len(failures))
		for key, ferr := range failures {
			logger.Debug("GC: failed to delete %s: %v", key, ferr)
		}
	}
	return nil
}

func (c *Collector) expireTrash(ctx context.Context, stats *Stats) error {
	if c.config.TrashRetention <= 0 {
		return nil
	}

	expired, err := c.meta.ScanFiles(ctx, metadata.FileFilter{
		Deleted:       metadata.Bool(true),
		DeletedBefore: c.now().Add(-c.config.TrashRetention),
	})
	if err != nil {
		return fmt.Errorf("failed to scan expired trash: %w", err)
	}
	stats.ExpiredTrashCount = uint64(len(expired))

	if c.config.DryRun {
		if len(expired) > 0 {
			logger.Info("GC: DRY RUN - would purge %d expired trash records", len(expired))
		}
		return nil
	}

	for _, r := range expired {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.purger.PurgeRecord(ctx, r); err != nil {
			logger.Warn("GC: failed to purge expired '%s' (owner=%s id=%s): %v", r.ObjectKey, r.OwnerID, r.FileID, err)
			stats.FailedCount++
			continue
		}
		stats.PurgedTrashCount++
	}
	return nil
}

// Stats contains statistics from a collection run.
type Stats struct {
	StartTime time.Time
	EndTime   time.Time
	DryRun    bool

	ReferencedCount   uint64 // distinct storage keys referenced by records
	ExistingCount     uint64 // objects in the store
	OrphanedCount     uint64 // unreferenced objects past the grace period
	YoungOrphanCount  uint64 // unreferenced objects still within the grace period
	DeletedCount      uint64 // orphans deleted
	FailedCount       uint64 // orphan deletes and trash purges that failed
	ExpiredTrashCount uint64 // trashed records past retention
	PurgedTrashCount  uint64 // expired trash records purged

	// Dangling lists storage keys referenced by records whose object is gone.
	Dangling []string
}

// Duration returns the total collection duration.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Summary returns a human-readable summary of the run.
func (s *Stats) Summary() string {
	return fmt.Sprintf("referenced=%d existing=%d orphaned=%d young=%d deleted=%d failed=%d dangling=%d expired_trash=%d purged_trash=%d dry_run=%v duration=%s",
		s.ReferencedCount, s.ExistingCount, s.OrphanedCount, s.YoungOrphanCount,
		s.DeletedCount, s.FailedCount, len(s.Dangling), s.ExpiredTrashCount,
		s.PurgedTrashCount, s.DryRun, s.Duration())
}
