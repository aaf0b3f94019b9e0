package gc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/store/metadata"
	metamemory "github.com/marmos91/dittodrive/pkg/store/metadata/memory"
	"github.com/marmos91/dittodrive/pkg/store/object"
	objmemory "github.com/marmos91/dittodrive/pkg/store/object/memory"
)

type env struct {
	objects *objmemory.MemoryObjectStore
	meta    *metamemory.MemoryMetadataStore
	svc     *drive.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	objects, err := objmemory.NewMemoryObjectStore(context.Background(), nil)
	require.NoError(t, err)
	meta := metamemory.NewMemoryMetadataStore()
	return &env{objects: objects, meta: meta, svc: drive.New(objects, meta)}
}

func (e *env) upload(t *testing.T, owner, name string) *metadata.FileRecord {
	t.Helper()
	rec, err := e.svc.Upload(context.Background(), drive.UploadRequest{OwnerID: owner, Name: name, Data: []byte(name)})
	require.NoError(t, err)
	return rec
}

func (e *env) collector(t *testing.T, cfg Config, skew time.Duration) *Collector {
	t.Helper()
	c, err := NewCollector(e.meta, e.objects, e.svc, cfg)
	require.NoError(t, err)
	c.now = func() time.Time { return time.Now().Add(skew) }
	return c
}

func (e *env) exists(t *testing.T, key string) bool {
	t.Helper()
	ok, err := e.objects.Exists(context.Background(), key)
	require.NoError(t, err)
	return ok
}

type recordingMetrics struct {
	runs []*Stats
	errs []error
}

func (m *recordingMetrics) RecordRun(stats *Stats, err error) {
	m.runs = append(m.runs, stats)
	m.errs = append(m.errs, err)
}

func TestNewCollector_RequiresGarbageCollectableStore(t *testing.T) {
	e := newEnv(t)

	var plain object.Store = struct{ object.Store }{e.objects}
	_, err := NewCollector(e.meta, plain, nil, Config{})
	assert.Error(t, err)

	_, err = NewCollector(e.meta, e.objects, nil, Config{TrashRetention: time.Hour})
	assert.Error(t, err)
}

func TestCollect_DeletesOldOrphans(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.upload(t, "alice", "keep.txt")
	require.NoError(t, e.objects.Put(ctx, "alice/orphan.txt", []byte("x"), ""))

	c := e.collector(t, Config{}, 2*time.Hour)
	stats, err := c.RunNow(ctx)
	require.NoError(t, err)

	assert.EqualValues(t, 1, stats.ReferencedCount)
	assert.EqualValues(t, 2, stats.ExistingCount)
	assert.EqualValues(t, 1, stats.OrphanedCount)
	assert.EqualValues(t, 1, stats.DeletedCount)
	assert.Empty(t, stats.Dangling)
	assert.False(t, e.exists(t, "alice/orphan.txt"))
	assert.True(t, e.exists(t, "alice/keep.txt"))
}

func TestCollect_GracePeriodProtectsYoungObjects(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.objects.Put(ctx, "alice/in-flight.txt", []byte("x"), ""))

	c := e.collector(t, Config{GracePeriod: time.Hour}, 0)
	stats, err := c.RunNow(ctx)
	require.NoError(t, err)

	assert.Zero(t, stats.OrphanedCount)
	assert.EqualValues(t, 1, stats.YoungOrphanCount)
	assert.True(t, e.exists(t, "alice/in-flight.txt"))
}

func TestCollect_DryRun(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.objects.Put(ctx, "alice/orphan.txt", []byte("x"), ""))

	c := e.collector(t, Config{DryRun: true}, 2*time.Hour)
	stats, err := c.RunNow(ctx)
	require.NoError(t, err)

	assert.EqualValues(t, 1, stats.OrphanedCount)
	assert.Zero(t, stats.DeletedCount)
	assert.True(t, e.exists(t, "alice/orphan.txt"))
	assert.Contains(t, stats.Summary(), "dry_run=true")
}

func TestCollect_ReportsDanglingRecords(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rec := e.upload(t, "alice", "gone.txt")
	require.NoError(t, e.objects.Delete(ctx, drive.StorageKey("alice", rec.ObjectKey)))

	c := e.collector(t, Config{}, 0)
	stats, err := c.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice/gone.txt"}, stats.Dangling)

	// Reported, not repaired
	_, err = e.meta.GetFile(ctx, "alice", rec.FileID)
	assert.NoError(t, err)
}

func TestCollect_ExpiresTrash(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	old := e.upload(t, "alice", "old.txt")
	e.upload(t, "alice", "active.txt")
	require.NoError(t, e.svc.Trash(ctx, "alice", "old.txt"))

	m := &recordingMetrics{}
	c := e.collector(t, Config{TrashRetention: 24 * time.Hour}, 48*time.Hour)
	c.SetMetrics(m)

	stats, err := c.RunNow(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.ExpiredTrashCount)
	assert.EqualValues(t, 1, stats.PurgedTrashCount)

	_, err = e.meta.GetFile(ctx, "alice", old.FileID)
	assert.ErrorIs(t, err, metadata.ErrRecordNotFound)
	assert.False(t, e.exists(t, "alice/old.txt"))
	assert.True(t, e.exists(t, "alice/active.txt"))

	require.Len(t, m.runs, 1)
	assert.NoError(t, m.errs[0])
}

func TestCollect_RetentionKeepsRecentTrash(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.upload(t, "alice", "recent.txt")
	require.NoError(t, e.svc.Trash(ctx, "alice", "recent.txt"))

	c := e.collector(t, Config{TrashRetention: 24 * time.Hour}, 0)
	stats, err := c.RunNow(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.ExpiredTrashCount)
	assert.True(t, e.exists(t, "alice/recent.txt"))
}

type failingPurger struct{}

func (failingPurger) PurgeRecord(context.Context, *metadata.FileRecord) error {
	return errors.New("purge refused")
}

func TestCollect_PurgeFailuresCounted(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.upload(t, "alice", "old.txt")
	require.NoError(t, e.svc.Trash(ctx, "alice", "old.txt"))

	c, err := NewCollector(e.meta, e.objects, failingPurger{}, Config{TrashRetention: time.Hour})
	require.NoError(t, err)
	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	stats, err := c.RunNow(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.PurgedTrashCount)
	assert.EqualValues(t, 1, stats.FailedCount)
}

func TestCollect_CancelledContext(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := &recordingMetrics{}
	c := e.collector(t, Config{}, 0)
	c.SetMetrics(m)

	_, err := c.RunNow(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, m.errs, 1)
	assert.Error(t, m.errs[0])
}

func TestStartStop(t *testing.T) {
	e := newEnv(t)

	c := e.collector(t, Config{Enabled: true, Interval: 10 * time.Millisecond}, 0)
	c.Start()
	time.Sleep(30 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
	require.NoError(t, c.Stop(ctx))

	disabled := e.collector(t, Config{}, 0)
	disabled.Start()
	assert.NoError(t, disabled.Stop(ctx))
}
