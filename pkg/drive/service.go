// Package drive implements the lifecycle orchestrator: upload, rename,
// trash, restore and purge as ordered multi-step operations over an object
// store and a metadata store that share no transaction.
//
// Ordering discipline:
//   - Object writes happen before metadata writes, so a record never
//     references bytes that were never stored. A crash in between leaves an
//     orphaned object, which the gc sweep reclaims.
//   - Rename copies before deleting and commits the metadata update last. A
//     failed delete of the old key leaves a duplicate object (a tolerated
//     leak, never rolled back).
//   - Purge deletes the object before the record. A failed record delete
//     leaves a dangling record that the gc sweep reports.
//
// No operation retries automatically, and there is no per-record lock:
// concurrent Rename and Purge of the same record may interleave.
package drive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/listing"
	"github.com/marmos91/dittodrive/pkg/store/metadata"
	"github.com/marmos91/dittodrive/pkg/store/object"
)

const (
	// DefaultPresignTTL is the lifetime of URLs handed out by listings.
	DefaultPresignTTL = time.Hour

	// DefaultMaxUploadBytes caps a single upload.
	DefaultMaxUploadBytes int64 = 50 << 20
)

// Service coordinates the object and metadata stores for every owner.
//
// Thread Safety:
// Safe for concurrent use. Operations keep no in-process state between
// adapter calls.
type Service struct {
	objects object.Store
	meta    metadata.Store
	folders *FolderRegistry
	quota   *Quota

	presignTTL     time.Duration
	maxUploadBytes int64
	metrics        Metrics
	now            func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPresignTTL sets the lifetime of presigned URLs.
func WithPresignTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.presignTTL = ttl
		}
	}
}

// WithMaxUploadBytes caps the size of a single upload (0 disables the cap).
func WithMaxUploadBytes(n int64) Option {
	return func(s *Service) { s.maxUploadBytes = n }
}

// WithQuota sets the storage quota policy.
func WithQuota(q *Quota) Option {
	return func(s *Service) {
		if q != nil {
			s.quota = q
		}
	}
}

// WithMetrics sets the metrics sink. A nil value keeps the no-op sink.
func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service over the given adapters.
func New(objects object.Store, meta metadata.Store, opts ...Option) *Service {
	s := &Service{
		objects:        objects,
		meta:           meta,
		quota:          NewQuota(0, nil),
		presignTTL:     DefaultPresignTTL,
		maxUploadBytes: DefaultMaxUploadBytes,
		metrics:        noopMetrics{},
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.folders = NewFolderRegistry(meta, s.now)
	return s
}

// Folders returns the folder registry.
func (s *Service) Folders() *FolderRegistry {
	return s.folders
}

// StorageKey is the physical object key for an owner's logical key. Owners
// never share bytes even when their logical keys are equal.
func StorageKey(ownerID, key string) string {
	return ownerID + "/" + key
}

// OwnerFromStorageKey splits a physical key back into owner and logical key.
func OwnerFromStorageKey(storageKey string) (ownerID, key string, ok bool) {
	ownerID, key, ok = strings.Cut(storageKey, "/")
	if !ok || ownerID == "" || key == "" {
		return "", "", false
	}
	return ownerID, key, true
}

// validateOwner rejects identities that cannot be used as a key namespace.
func validateOwner(op, ownerID string) error {
	if ownerID == "" || strings.ContainsAny(ownerID, "/:") || strings.TrimSpace(ownerID) != ownerID {
		return newError(op, "validate", KindInvalidArgument, fmt.Errorf("invalid owner id %q", ownerID))
	}
	return nil
}

// validateKey normalizes key, trimming spaces around each segment, and
// rejects empty or traversing keys.
func validateKey(op, key string) (string, error) {
	var segments []string
	for _, seg := range strings.Split(key, "/") {
		seg = strings.TrimSpace(seg)
		switch seg {
		case "":
			continue
		case ".", "..":
			return "", newError(op, "validate", KindInvalidArgument, fmt.Errorf("invalid key %q", key))
		}
		segments = append(segments, seg)
	}
	if len(segments) == 0 {
		return "", newError(op, "validate", KindInvalidArgument, fmt.Errorf("key is required"))
	}
	return strings.Join(segments, "/"), nil
}

// observe records the outcome of op.
func (s *Service) observe(op string, start time.Time, err error) {
	s.metrics.ObserveOperation(op, time.Since(start), KindOf(err))
}

// presign mints a URL for r under its owner's namespace.
func (s *Service) presign(ctx context.Context, r *metadata.FileRecord) (string, error) {
	return s.objects.Presign(ctx, StorageKey(r.OwnerID, r.ObjectKey), s.presignTTL)
}

// recordsWithKey returns the owner's records whose ObjectKey equals key.
func (s *Service) recordsWithKey(ctx context.Context, op, ownerID, key string) ([]*metadata.FileRecord, error) {
	records, err := s.meta.ScanFiles(ctx, metadata.FileFilter{OwnerID: ownerID, ObjectKey: key})
	if err != nil {
		return nil, metaErr(op, "scan_records", err)
	}
	return records, nil
}

// keyOccupied returns a conflict when a record other than skipID holds key.
// Trashed records count: restoring them must return their own bytes.
func keyOccupied(op string, records []*metadata.FileRecord, skipID, key string) error {
	for _, r := range records {
		if r.FileID == skipID || r.ObjectKey != key {
			continue
		}
		if r.IsDeleted {
			return newError(op, "check_conflict", KindConflict,
				fmt.Errorf("key %q is held by a trashed file; restore or purge it first", key))
		}
		return newError(op, "check_conflict", KindConflict, fmt.Errorf("key %q already exists", key))
	}
	return nil
}

// splitByState partitions records into active and trashed.
func splitByState(records []*metadata.FileRecord) (active, trashed []*metadata.FileRecord) {
	for _, r := range records {
		if r.IsDeleted {
			trashed = append(trashed, r)
		} else {
			active = append(active, r)
		}
	}
	return active, trashed
}

// List returns the two-level view of prefix for ownerID. URLs are presigned
// fresh, falling back to the cached URL when presigning fails.
func (s *Service) List(ctx context.Context, ownerID, prefix string) (l *listing.Listing, err error) {
	const op = "list"
	start := time.Now()
	defer func() { s.observe(op, start, err) }()

	if err := validateOwner(op, ownerID); err != nil {
		return nil, err
	}

	files, err := s.meta.ScanFiles(ctx, metadata.FileFilter{OwnerID: ownerID, Deleted: metadata.Bool(false)})
	if err != nil {
		return nil, metaErr(op, "scan_records", err)
	}

	folders, err := s.folders.Children(ctx, ownerID, prefix)
	if err != nil {
		return nil, metaErr(op, "scan_folders", err)
	}

	l, err = listing.Build(ctx, prefix, files, folders, s.presign)
	if err != nil {
		return nil, objectErr(op, "presign", err)
	}

	if l.PresignFallbacks > 0 {
		logger.Warn("List: %d presign failures for owner=%s prefix=%q, served cached URLs", l.PresignFallbacks, ownerID, l.Prefix)
		s.metrics.RecordPresignFallbacks(l.PresignFallbacks)
	}

	logger.Debug("List: owner=%s prefix=%q files=%d folders=%d", ownerID, l.Prefix, len(l.Files), len(l.Folders))
	return l, nil
}

// CreateFolder registers an explicit folder. See FolderRegistry.Create.
func (s *Service) CreateFolder(ctx context.Context, ownerID, name, parentPath string) (f *metadata.FolderRecord, err error) {
	const op = "create_folder"
	start := time.Now()
	defer func() { s.observe(op, start, err) }()

	if err := validateOwner(op, ownerID); err != nil {
		return nil, err
	}
	return s.folders.Create(ctx, ownerID, name, parentPath)
}

// Usage summarizes an owner's storage consumption.
type Usage struct {
	UsedBytes    int64 `json:"usedBytes"`
	LimitBytes   int64 `json:"limitBytes"`
	Files        int   `json:"files"`
	TrashedFiles int   `json:"trashedFiles"`
}

// Usage reports the owner's used bytes (trashed files count until purged),
// quota limit and file counts.
func (s *Service) Usage(ctx context.Context, ownerID string) (u *Usage, err error) {
	const op = "usage"
	start := time.Now()
	defer func() { s.observe(op, start, err) }()

	if err := validateOwner(op, ownerID); err != nil {
		return nil, err
	}

	records, err := s.meta.ScanFiles(ctx, metadata.FileFilter{OwnerID: ownerID})
	if err != nil {
		return nil, metaErr(op, "scan_records", err)
	}

	u = &Usage{LimitBytes: s.quota.Limit(ownerID)}
	for _, r := range records {
		u.UsedBytes += r.Size
		if r.IsDeleted {
			u.TrashedFiles++
		} else {
			u.Files++
		}
	}
	return u, nil
}
