package drive

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodrive/pkg/store/metadata"
	metamemory "github.com/marmos91/dittodrive/pkg/store/metadata/memory"
	"github.com/marmos91/dittodrive/pkg/store/object"
	objmemory "github.com/marmos91/dittodrive/pkg/store/object/memory"
)

const owner = "alice"

// ============================================================================
// Test doubles
// ============================================================================

// faultyObjects wraps an object store and fails selected methods.
type faultyObjects struct {
	object.Store
	failPut, failCopy, failDelete, failPresign error
	deletes                                    []string
}

func (f *faultyObjects) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if f.failPut != nil {
		return f.failPut
	}
	return f.Store.Put(ctx, key, data, contentType)
}

func (f *faultyObjects) Copy(ctx context.Context, src, dst string) error {
	if f.failCopy != nil {
		return f.failCopy
	}
	return f.Store.Copy(ctx, src, dst)
}

func (f *faultyObjects) Delete(ctx context.Context, key string) error {
	f.deletes = append(f.deletes, key)
	if f.failDelete != nil {
		return f.failDelete
	}
	return f.Store.Delete(ctx, key)
}

func (f *faultyObjects) Presign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if f.failPresign != nil {
		return "", f.failPresign
	}
	return f.Store.Presign(ctx, key, ttl)
}

// faultyMeta wraps a metadata store and fails selected methods.
type faultyMeta struct {
	metadata.Store
	failPut, failUpdate error
	failDeleteFor       string
}

func (f *faultyMeta) PutFile(ctx context.Context, r *metadata.FileRecord) error {
	if f.failPut != nil {
		return f.failPut
	}
	return f.Store.PutFile(ctx, r)
}

func (f *faultyMeta) UpdateFile(ctx context.Context, ownerID, fileID string, u metadata.FileUpdate) (*metadata.FileRecord, error) {
	if f.failUpdate != nil {
		return nil, f.failUpdate
	}
	return f.Store.UpdateFile(ctx, ownerID, fileID, u)
}

func (f *faultyMeta) DeleteFile(ctx context.Context, ownerID, fileID string) error {
	if fileID == f.failDeleteFor {
		return errors.New("metadata unavailable")
	}
	return f.Store.DeleteFile(ctx, ownerID, fileID)
}

// recordingMetrics captures what the service reports.
type recordingMetrics struct {
	mu        sync.Mutex
	ops       map[string][]Kind
	leaks     map[string]int
	fallbacks int
	quota     int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{ops: map[string][]Kind{}, leaks: map[string]int{}}
}

func (m *recordingMetrics) ObserveOperation(op string, _ time.Duration, kind Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops[op] = append(m.ops[op], kind)
}

func (m *recordingMetrics) RecordLeak(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaks[op]++
}

func (m *recordingMetrics) RecordPresignFallbacks(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbacks += n
}

func (m *recordingMetrics) RecordQuotaRejection() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quota++
}

type fixture struct {
	svc     *Service
	objects *faultyObjects
	meta    *faultyMeta
	metrics *recordingMetrics
}

// newFixture builds a service over in-memory stores with a clock that ticks
// one second per call.
func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	store, err := objmemory.NewMemoryObjectStore(context.Background(), nil)
	require.NoError(t, err)

	f := &fixture{
		objects: &faultyObjects{Store: store},
		meta:    &faultyMeta{Store: metamemory.NewMemoryMetadataStore()},
		metrics: newRecordingMetrics(),
	}

	var mu sync.Mutex
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}

	opts = append([]Option{WithMetrics(f.metrics), WithClock(tick)}, opts...)
	f.svc = New(f.objects, f.meta, opts...)
	return f
}

func (f *fixture) upload(t *testing.T, name string, size int) *metadata.FileRecord {
	t.Helper()
	rec, err := f.svc.Upload(context.Background(), UploadRequest{OwnerID: owner, Name: name, Data: make([]byte, size)})
	require.NoError(t, err)
	return rec
}

func (f *fixture) objectExists(t *testing.T, key string) bool {
	t.Helper()
	ok, err := f.objects.Store.Exists(context.Background(), StorageKey(owner, key))
	require.NoError(t, err)
	return ok
}

func (f *fixture) readObject(t *testing.T, key string) []byte {
	t.Helper()
	rc, err := f.objects.Store.Get(context.Background(), StorageKey(owner, key))
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return data
}

// plantTrashed writes a trashed record at key straight to the metadata
// store, sharing whatever object already sits at key.
func (f *fixture) plantTrashed(t *testing.T, key, id string, size int64, at time.Time) *metadata.FileRecord {
	t.Helper()
	r := metadata.NewFileRecord(owner, id, key, size, "", "", at)
	r.IsDeleted = true
	r.DeletedAt = &at
	require.NoError(t, f.meta.PutFile(context.Background(), r))
	return r
}

func fileNames(t *testing.T, f *fixture, prefix string) []string {
	t.Helper()
	l, err := f.svc.List(context.Background(), owner, prefix)
	require.NoError(t, err)
	out := []string{}
	for _, e := range l.Files {
		out = append(out, e.Name)
	}
	return out
}

// ============================================================================
// Scenarios
// ============================================================================

func TestScenario_UploadAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.upload(t, "report.pdf", 500)
	f.upload(t, "specs/design.docx", 2000)

	root, err := f.svc.List(ctx, owner, "")
	require.NoError(t, err)
	require.Len(t, root.Files, 1)
	assert.Equal(t, "report.pdf", root.Files[0].Name)
	assert.EqualValues(t, 500, root.Files[0].Size)
	assert.NotEmpty(t, root.Files[0].URL)
	require.Len(t, root.Folders, 1)
	assert.Equal(t, "specs", root.Folders[0].Name)

	specs, err := f.svc.List(ctx, owner, "specs")
	require.NoError(t, err)
	require.Len(t, specs.Files, 1)
	assert.Equal(t, "design.docx", specs.Files[0].Name)
	assert.EqualValues(t, 2000, specs.Files[0].Size)
	assert.Empty(t, specs.Folders)
}

func TestScenario_Rename(t *testing.T) {
	f := newFixture(t)
	rec := f.upload(t, "report.pdf", 500)

	res, err := f.svc.Rename(context.Background(), owner, "report.pdf", "report-final.pdf")
	require.NoError(t, err)
	assert.Equal(t, "report-final.pdf", res.NewKey)
	assert.NotEmpty(t, res.URL)
	assert.Equal(t, rec.FileID, res.File.FileID)
	assert.Equal(t, rec.CreatedAt, res.File.CreatedAt)
	assert.Equal(t, "report-final.pdf", res.File.DisplayName)

	assert.Equal(t, []string{"report-final.pdf"}, fileNames(t, f, ""))
	assert.True(t, f.objectExists(t, "report-final.pdf"))
	assert.False(t, f.objectExists(t, "report.pdf"))
	assert.Len(t, f.readObject(t, "report-final.pdf"), 500)
}

func TestScenario_TrashEmptyTrash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.upload(t, "specs/design.docx", 2000)

	require.NoError(t, f.svc.Trash(ctx, owner, "specs/design.docx"))

	res, err := f.svc.EmptyTrash(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Purged)
	assert.Empty(t, res.Failures)

	trash, err := f.svc.ListTrash(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, trash)
	assert.False(t, f.objectExists(t, "specs/design.docx"))
}

// ============================================================================
// Upload
// ============================================================================

func TestUpload_FolderAndKey(t *testing.T) {
	f := newFixture(t)
	rec, err := f.svc.Upload(context.Background(), UploadRequest{
		OwnerID:     owner,
		Name:        " notes.txt ",
		FolderID:    "/docs/",
		Data:        []byte("hello"),
		ContentType: "text/plain",
	})
	require.NoError(t, err)
	assert.Equal(t, "docs/notes.txt", rec.ObjectKey)
	assert.Equal(t, "notes.txt", rec.DisplayName)
	assert.Equal(t, "docs", rec.FolderID)
	assert.Equal(t, "text/plain", rec.ContentType)
	assert.NotEmpty(t, rec.CachedURL)
	assert.Equal(t, []byte("hello"), f.readObject(t, "docs/notes.txt"))
}

func TestUpload_Validation(t *testing.T) {
	f := newFixture(t, WithMaxUploadBytes(10))
	ctx := context.Background()

	tests := []struct {
		name string
		req  UploadRequest
	}{
		{"empty owner", UploadRequest{Name: "a.txt"}},
		{"owner with separator", UploadRequest{OwnerID: "a/b", Name: "a.txt"}},
		{"owner with colon", UploadRequest{OwnerID: "a:b", Name: "a.txt"}},
		{"empty name", UploadRequest{OwnerID: owner, Name: " / "}},
		{"traversal", UploadRequest{OwnerID: owner, Name: "../etc/passwd"}},
		{"too large", UploadRequest{OwnerID: owner, Name: "big.bin", Data: make([]byte, 11)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Upload(ctx, tt.req)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestUpload_QuotaExceeded(t *testing.T) {
	f := newFixture(t, WithQuota(NewQuota(1000, map[string]int64{"bob": 0})))
	ctx := context.Background()

	f.upload(t, "a.bin", 600)
	trashed := f.upload(t, "b.bin", 300)
	require.NoError(t, f.svc.Trash(ctx, owner, trashed.ObjectKey))

	// Trashed bytes still count
	_, err := f.svc.Upload(ctx, UploadRequest{OwnerID: owner, Name: "c.bin", Data: make([]byte, 101)})
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, KindQuotaExceeded, KindOf(err))
	assert.Equal(t, 1, f.metrics.quota)
	assert.False(t, f.objectExists(t, "c.bin"))

	_, err = f.svc.Upload(ctx, UploadRequest{OwnerID: owner, Name: "c.bin", Data: make([]byte, 100)})
	assert.NoError(t, err)

	// Per-owner override of 0 is unlimited
	_, err = f.svc.Upload(ctx, UploadRequest{OwnerID: "bob", Name: "huge.bin", Data: make([]byte, 5000)})
	assert.NoError(t, err)
}

func TestUpload_ActiveKeyConflict(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "a.txt", 1)

	_, err := f.svc.Upload(context.Background(), UploadRequest{OwnerID: owner, Name: "a.txt", Data: []byte("x")})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUpload_TrashedKeyConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Upload(ctx, UploadRequest{OwnerID: owner, Name: "a.txt", Data: []byte("first")})
	require.NoError(t, err)
	require.NoError(t, f.svc.Trash(ctx, owner, "a.txt"))

	_, err = f.svc.Upload(ctx, UploadRequest{OwnerID: owner, Name: "a.txt", Data: []byte("second")})
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "first", string(f.readObject(t, "a.txt")))

	// Purging the trashed file frees the key
	require.NoError(t, f.svc.Purge(ctx, owner, "a.txt"))
	_, err = f.svc.Upload(ctx, UploadRequest{OwnerID: owner, Name: "a.txt", Data: []byte("second")})
	require.NoError(t, err)
	assert.Equal(t, "second", string(f.readObject(t, "a.txt")))
}

func TestUpload_StableFileIDIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := UploadRequest{OwnerID: owner, Name: "a.txt", Data: []byte("x"), FileID: "stable-1"}

	first, err := f.svc.Upload(ctx, req)
	require.NoError(t, err)
	second, err := f.svc.Upload(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.FileID, second.FileID)

	records, err := f.meta.ScanFiles(ctx, metadata.FileFilter{OwnerID: owner})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestUpload_WithoutFileIDCreatesDistinctRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.upload(t, "a.txt", 1)
	require.NoError(t, f.svc.Purge(ctx, owner, "a.txt"))
	b := f.upload(t, "a.txt", 1)
	assert.NotEqual(t, a.FileID, b.FileID)
}

func TestUpload_ObjectFailureCreatesNoRecord(t *testing.T) {
	f := newFixture(t)
	f.objects.failPut = errors.New("bucket unavailable")

	_, err := f.svc.Upload(context.Background(), UploadRequest{OwnerID: owner, Name: "a.txt", Data: []byte("x")})
	require.ErrorIs(t, err, ErrObjectStore)

	var de *Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "upload", de.Op)
	assert.Equal(t, "put_object", de.Step)

	records, err := f.meta.ScanFiles(context.Background(), metadata.FileFilter{OwnerID: owner})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestUpload_RecordFailureOrphansObject(t *testing.T) {
	f := newFixture(t)
	f.meta.failPut = errors.New("table unavailable")

	_, err := f.svc.Upload(context.Background(), UploadRequest{OwnerID: owner, Name: "a.txt", Data: []byte("x")})
	require.ErrorIs(t, err, ErrMetadata)
	assert.True(t, f.objectExists(t, "a.txt"))
	assert.Equal(t, 1, f.metrics.leaks["upload"])
}

func TestUpload_PresignFailureIsBestEffort(t *testing.T) {
	f := newFixture(t)
	f.objects.failPresign = errors.New("signer down")

	rec := f.upload(t, "a.txt", 1)
	assert.Empty(t, rec.CachedURL)
}

func TestUpload_DeadlineIsTimeout(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := f.svc.Upload(ctx, UploadRequest{OwnerID: owner, Name: "a.txt", Data: []byte("x")})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var de *Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "scan_records", de.Step)
}

func TestOwnersAreIsolated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.upload(t, "a.txt", 1)

	_, err := f.svc.Upload(ctx, UploadRequest{OwnerID: "bob", Name: "a.txt", Data: []byte("bob")})
	require.NoError(t, err)

	bob, err := f.svc.List(ctx, "bob", "")
	require.NoError(t, err)
	require.Len(t, bob.Files, 1)
	assert.Len(t, f.readObject(t, "a.txt"), 1)

	require.NoError(t, f.svc.Purge(ctx, "bob", "a.txt"))
	assert.True(t, f.objectExists(t, "a.txt"))
}

// ============================================================================
// Rename
// ============================================================================

func TestRename_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.upload(t, "docs/a.txt", 1)
	f.upload(t, "docs/b.txt", 1)

	_, err := f.svc.Rename(ctx, owner, "docs/missing.txt", "x.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Rename(ctx, owner, "docs/a.txt", "b.txt")
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.svc.Rename(ctx, owner, "docs/a.txt", "sub/x.txt")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	require.NoError(t, f.svc.Trash(ctx, owner, "docs/b.txt"))
	_, err = f.svc.Rename(ctx, owner, "docs/b.txt", "c.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	// A trashed holder of the destination still owns its bytes
	_, err = f.svc.Rename(ctx, owner, "docs/a.txt", "b.txt")
	assert.ErrorIs(t, err, ErrConflict)
	assert.True(t, f.objectExists(t, "docs/a.txt"))
}

func TestRename_RestoreAfterRenamesKeepsOriginalBytes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Upload(ctx, UploadRequest{OwnerID: owner, Name: "x.txt", Data: []byte("ORIGINAL")})
	require.NoError(t, err)
	require.NoError(t, f.svc.Trash(ctx, owner, "x.txt"))
	_, err = f.svc.Upload(ctx, UploadRequest{OwnerID: owner, Name: "y.txt", Data: []byte("OTHER")})
	require.NoError(t, err)

	_, err = f.svc.Rename(ctx, owner, "y.txt", "x.txt")
	require.ErrorIs(t, err, ErrConflict)

	_, err = f.svc.Rename(ctx, owner, "y.txt", "z.txt")
	require.NoError(t, err)

	require.NoError(t, f.svc.Restore(ctx, owner, "x.txt"))
	assert.Equal(t, "ORIGINAL", string(f.readObject(t, "x.txt")))
	assert.Equal(t, "OTHER", string(f.readObject(t, "z.txt")))
	assert.Equal(t, []string{"x.txt", "z.txt"}, fileNames(t, f, ""))
}

func TestRename_SameNameIsNoop(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "a.txt", 1)

	res, err := f.svc.Rename(context.Background(), owner, "a.txt", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", res.NewKey)
	assert.Empty(t, f.objects.deletes)
	assert.True(t, f.objectExists(t, "a.txt"))
}

func TestRename_SameNamePresignFallback(t *testing.T) {
	f := newFixture(t)
	rec := f.upload(t, "a.txt", 1)
	f.objects.failPresign = errors.New("signer down")

	res, err := f.svc.Rename(context.Background(), owner, "a.txt", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, rec.CachedURL, res.URL)
	assert.Equal(t, 1, f.metrics.fallbacks)
}

func TestRename_DeleteFailureIsToleratedLeak(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "a.txt", 1)
	f.objects.failDelete = errors.New("delete refused")

	res, err := f.svc.Rename(context.Background(), owner, "a.txt", "b.txt")
	require.NoError(t, err)
	assert.Equal(t, "b.txt", res.NewKey)
	assert.True(t, f.objectExists(t, "a.txt"))
	assert.True(t, f.objectExists(t, "b.txt"))
	assert.Equal(t, 1, f.metrics.leaks["rename"])
	assert.Equal(t, []string{"b.txt"}, fileNames(t, f, ""))
}

func TestRename_CopyFailureLeavesRecord(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "a.txt", 1)
	f.objects.failCopy = errors.New("copy refused")

	_, err := f.svc.Rename(context.Background(), owner, "a.txt", "b.txt")
	require.ErrorIs(t, err, ErrObjectStore)
	assert.Equal(t, []string{"a.txt"}, fileNames(t, f, ""))
	assert.True(t, f.objectExists(t, "a.txt"))
	assert.Empty(t, f.objects.deletes)
}

func TestRename_UpdateFailureKeepsNewCopy(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "a.txt", 1)
	f.meta.failUpdate = errors.New("table unavailable")

	_, err := f.svc.Rename(context.Background(), owner, "a.txt", "b.txt")
	require.ErrorIs(t, err, ErrMetadata)

	var de *Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "update_record", de.Step)
	assert.True(t, f.objectExists(t, "b.txt"))
}

func TestRename_KeepsObjectSharedWithTrashedRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stale := f.upload(t, "a.txt", 1)

	// A stale trashed pointer sharing the key
	dup := stale.Clone()
	dup.FileID = "stale"
	dup.IsDeleted = true
	require.NoError(t, f.meta.PutFile(ctx, dup))

	_, err := f.svc.Rename(ctx, owner, "a.txt", "b.txt")
	require.NoError(t, err)
	assert.True(t, f.objectExists(t, "a.txt"))
	assert.True(t, f.objectExists(t, "b.txt"))
}

// ============================================================================
// Trash / Restore
// ============================================================================

func TestTrashRestore_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.upload(t, "docs/a.txt", 42)

	require.NoError(t, f.svc.Trash(ctx, owner, "docs/a.txt"))
	assert.Empty(t, fileNames(t, f, "docs"))
	assert.True(t, f.objectExists(t, "docs/a.txt"))

	trash, err := f.svc.ListTrash(ctx, owner)
	require.NoError(t, err)
	require.Len(t, trash, 1)
	assert.Equal(t, "docs/a.txt", trash[0].Path)
	assert.Equal(t, "a.txt", trash[0].Name)

	// Idempotent
	require.NoError(t, f.svc.Trash(ctx, owner, "docs/a.txt"))

	require.NoError(t, f.svc.Restore(ctx, owner, "docs/a.txt"))
	require.NoError(t, f.svc.Restore(ctx, owner, "docs/a.txt"))

	l, err := f.svc.List(ctx, owner, "docs")
	require.NoError(t, err)
	require.Len(t, l.Files, 1)
	assert.EqualValues(t, 42, l.Files[0].Size)

	got, err := f.meta.GetFile(ctx, owner, rec.FileID)
	require.NoError(t, err)
	assert.Equal(t, rec.CreatedAt, got.CreatedAt)
	assert.Nil(t, got.DeletedAt)

	trash, err = f.svc.ListTrash(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, trash)
}

func TestTrashRestore_NotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.Trash(ctx, owner, "missing.txt"), ErrNotFound)
	assert.ErrorIs(t, f.svc.Restore(ctx, owner, "missing.txt"), ErrNotFound)
}

func TestRestore_ConflictWithActiveKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.upload(t, "a.txt", 2)
	f.plantTrashed(t, "a.txt", "stale", 1, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	assert.ErrorIs(t, f.svc.Restore(ctx, owner, "a.txt"), ErrConflict)
}

func TestRestore_PicksNewestTrashed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	newer := f.upload(t, "a.txt", 2)
	require.NoError(t, f.svc.Trash(ctx, owner, "a.txt"))
	older := f.plantTrashed(t, "a.txt", "older", 1, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	trash, err := f.svc.ListTrash(ctx, owner)
	require.NoError(t, err)
	require.Len(t, trash, 1)
	assert.EqualValues(t, 2, trash[0].Size)

	require.NoError(t, f.svc.Restore(ctx, owner, "a.txt"))

	got, err := f.meta.GetFile(ctx, owner, newer.FileID)
	require.NoError(t, err)
	assert.False(t, got.IsDeleted)

	got, err = f.meta.GetFile(ctx, owner, older.FileID)
	require.NoError(t, err)
	assert.True(t, got.IsDeleted)
}

func TestTrash_NoObjectIO(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.upload(t, "a.txt", 1)
	f.objects.failDelete = errors.New("must not be called")
	f.objects.failCopy = errors.New("must not be called")

	require.NoError(t, f.svc.Trash(ctx, owner, "a.txt"))
	require.NoError(t, f.svc.Restore(ctx, owner, "a.txt"))
	assert.Empty(t, f.objects.deletes)
}

// ============================================================================
// Purge
// ============================================================================

func TestPurge_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.upload(t, "a.txt", 1)
	require.NoError(t, f.svc.Trash(ctx, owner, "a.txt"))

	require.NoError(t, f.svc.Purge(ctx, owner, "a.txt"))
	require.NoError(t, f.svc.Purge(ctx, owner, "a.txt"))

	_, err := f.objects.Store.Get(ctx, StorageKey(owner, "a.txt"))
	assert.ErrorIs(t, err, object.ErrObjectNotFound)

	trash, err := f.svc.ListTrash(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, trash)
	assert.Empty(t, fileNames(t, f, ""))
}

func TestPurge_ActiveRecordWhenNothingTrashed(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "a.txt", 1)

	require.NoError(t, f.svc.Purge(context.Background(), owner, "a.txt"))
	assert.Empty(t, fileNames(t, f, ""))
	assert.False(t, f.objectExists(t, "a.txt"))
}

func TestPurge_KeepsObjectOfActiveRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.upload(t, "a.txt", 3)
	f.plantTrashed(t, "a.txt", "stale", 1, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	require.NoError(t, f.svc.Purge(ctx, owner, "a.txt"))
	assert.True(t, f.objectExists(t, "a.txt"))
	assert.Equal(t, []string{"a.txt"}, fileNames(t, f, ""))

	trash, err := f.svc.ListTrash(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, trash)
}

func TestPurge_ObjectFailureKeepsRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.upload(t, "a.txt", 1)
	require.NoError(t, f.svc.Trash(ctx, owner, "a.txt"))
	f.objects.failDelete = errors.New("delete refused")

	err := f.svc.Purge(ctx, owner, "a.txt")
	require.ErrorIs(t, err, ErrObjectStore)

	trash, err := f.svc.ListTrash(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, trash, 1)
}

// ============================================================================
// EmptyTrash
// ============================================================================

func TestEmptyTrash_CollectsFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.upload(t, "a.txt", 1)
	bad := f.upload(t, "b.txt", 1)
	f.upload(t, "c.txt", 1)
	f.upload(t, "keep.txt", 1)
	for _, k := range []string{"a.txt", "b.txt", "c.txt"} {
		require.NoError(t, f.svc.Trash(ctx, owner, k))
	}
	f.meta.failDeleteFor = bad.FileID

	res, err := f.svc.EmptyTrash(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Purged)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "b.txt", res.Failures[0].Key)
	assert.ErrorIs(t, res.Failures[0].Err, ErrMetadata)

	assert.Equal(t, []string{"keep.txt"}, fileNames(t, f, ""))
	trash, err := f.svc.ListTrash(ctx, owner)
	require.NoError(t, err)
	require.Len(t, trash, 1)
	assert.Equal(t, "b.txt", trash[0].Path)
}

func TestEmptyTrash_SharedKeyDeletedOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.upload(t, "a.txt", 1)
	require.NoError(t, f.svc.Trash(ctx, owner, "a.txt"))
	f.plantTrashed(t, "a.txt", "stale", 1, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	res, err := f.svc.EmptyTrash(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Purged)
	assert.False(t, f.objectExists(t, "a.txt"))
	assert.Len(t, f.objects.deletes, 1)
}

func TestEmptyTrash_Empty(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.EmptyTrash(context.Background(), owner)
	require.NoError(t, err)
	assert.Zero(t, res.Purged)
	assert.NotNil(t, res.Failures)
}

// ============================================================================
// TrashURL / Usage / Folders
// ============================================================================

func TestTrashURL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.upload(t, "a.txt", 1)

	_, err := f.svc.TrashURL(ctx, owner, "a.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, f.svc.Trash(ctx, owner, "a.txt"))
	url, err := f.svc.TrashURL(ctx, owner, "a.txt")
	require.NoError(t, err)
	assert.NotEmpty(t, url)

	f.objects.failPresign = errors.New("signer down")
	url, err = f.svc.TrashURL(ctx, owner, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, rec.CachedURL, url)
	assert.Equal(t, 1, f.metrics.fallbacks)
}

func TestList_PresignFallbackUsesCachedURL(t *testing.T) {
	f := newFixture(t)
	rec := f.upload(t, "a.txt", 1)
	f.objects.failPresign = errors.New("signer down")

	l, err := f.svc.List(context.Background(), owner, "")
	require.NoError(t, err)
	require.Len(t, l.Files, 1)
	assert.Equal(t, rec.CachedURL, l.Files[0].URL)
	assert.Equal(t, 1, f.metrics.fallbacks)
}

func TestUsage(t *testing.T) {
	f := newFixture(t, WithQuota(NewQuota(10_000, nil)))
	ctx := context.Background()
	f.upload(t, "a.bin", 100)
	f.upload(t, "b.bin", 200)
	require.NoError(t, f.svc.Trash(ctx, owner, "b.bin"))

	u, err := f.svc.Usage(ctx, owner)
	require.NoError(t, err)
	assert.EqualValues(t, 300, u.UsedBytes)
	assert.EqualValues(t, 10_000, u.LimitBytes)
	assert.Equal(t, 1, u.Files)
	assert.Equal(t, 1, u.TrashedFiles)
}

func TestCreateFolder_AppearsInListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	docs, err := f.svc.CreateFolder(ctx, owner, "docs", "")
	require.NoError(t, err)
	assert.Nil(t, docs.ParentFolderID)

	reports, err := f.svc.CreateFolder(ctx, owner, "reports", "/docs/")
	require.NoError(t, err)
	assert.Equal(t, "docs", reports.ParentPath)
	require.NotNil(t, reports.ParentFolderID)
	assert.Equal(t, docs.FolderID, *reports.ParentFolderID)

	root, err := f.svc.List(ctx, owner, "")
	require.NoError(t, err)
	require.Len(t, root.Folders, 1)
	assert.Equal(t, "docs", root.Folders[0].Name)

	l, err := f.svc.List(ctx, owner, "docs")
	require.NoError(t, err)
	require.Len(t, l.Folders, 1)
	assert.Equal(t, "reports", l.Folders[0].Name)
	assert.Empty(t, l.Files)
}

func TestCreateFolder_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.upload(t, "taken", 1)

	_, err := f.svc.CreateFolder(ctx, owner, "a/b", "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = f.svc.CreateFolder(ctx, owner, "", "")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = f.svc.CreateFolder(ctx, owner, "taken", "")
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.svc.CreateFolder(ctx, owner, "docs", "")
	require.NoError(t, err)
	_, err = f.svc.CreateFolder(ctx, owner, "docs", "/")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCreateFolder_ParentMustExist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateFolder(ctx, owner, "b", "a")
	assert.ErrorIs(t, err, ErrNotFound)

	// A parent implied by an active file is enough
	f.upload(t, "photos/2024/1.jpg", 1)
	nested, err := f.svc.CreateFolder(ctx, owner, "albums", "photos")
	require.NoError(t, err)
	assert.Nil(t, nested.ParentFolderID)

	l, err := f.svc.List(ctx, owner, "photos")
	require.NoError(t, err)
	assert.Len(t, l.Folders, 2)

	// Trashed files imply nothing
	f.upload(t, "old/a.txt", 1)
	require.NoError(t, f.svc.Trash(ctx, owner, "old/a.txt"))
	_, err = f.svc.CreateFolder(ctx, owner, "x", "old")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFoldersSurviveFileOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateFolder(ctx, owner, "docs", "")
	require.NoError(t, err)
	f.upload(t, "docs/a.txt", 1)
	require.NoError(t, f.svc.Purge(ctx, owner, "docs/a.txt"))

	root, err := f.svc.List(ctx, owner, "")
	require.NoError(t, err)
	require.Len(t, root.Folders, 1)
	assert.Equal(t, "docs", root.Folders[0].Name)
}

func TestOperationsAreObserved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.upload(t, "a.txt", 1)
	_ = f.svc.Trash(ctx, owner, "missing.txt")

	assert.Equal(t, []Kind{""}, f.metrics.ops["upload"])
	assert.Equal(t, []Kind{KindNotFound}, f.metrics.ops["trash"])
}
