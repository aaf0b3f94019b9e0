package drive

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/listing"
	"github.com/marmos91/dittodrive/pkg/store/metadata"
)

// Trash soft-deletes the active record at key. The object is untouched.
// Trashing an already-trashed key is a no-op.
func (s *Service) Trash(ctx context.Context, ownerID, key string) (err error) {
	const op = "trash"
	start := time.Now()
	defer func() { s.observe(op, start, err) }()

	if err := validateOwner(op, ownerID); err != nil {
		return err
	}
	if key, err = validateKey(op, key); err != nil {
		return err
	}

	records, err := s.recordsWithKey(ctx, op, ownerID, key)
	if err != nil {
		return err
	}
	active, trashed := splitByState(records)
	if len(active) == 0 {
		if len(trashed) > 0 {
			logger.Debug("Trash: '%s' already in trash", key)
			return nil
		}
		return newError(op, "lookup", KindNotFound, fmt.Errorf("key %q", key))
	}

	now := s.now()
	for _, r := range active {
		if _, err := s.meta.UpdateFile(ctx, ownerID, r.FileID, metadata.FileUpdate{
			IsDeleted: metadata.Bool(true),
			DeletedAt: &now,
			UpdatedAt: now,
		}); err != nil {
			return metaErr(op, "update_record", err)
		}
	}

	logger.Debug("Trash: owner=%s key='%s'", ownerID, key)
	return nil
}

// Restore brings the most recently modified trashed record at key back.
// Restoring a key that is only active is a no-op; restoring while another
// active record holds the key is a conflict.
func (s *Service) Restore(ctx context.Context, ownerID, key string) (err error) {
	const op = "restore"
	start := time.Now()
	defer func() { s.observe(op, start, err) }()

	if err := validateOwner(op, ownerID); err != nil {
		return err
	}
	if key, err = validateKey(op, key); err != nil {
		return err
	}

	records, err := s.recordsWithKey(ctx, op, ownerID, key)
	if err != nil {
		return err
	}
	active, trashed := splitByState(records)
	switch {
	case len(trashed) == 0 && len(active) == 0:
		return newError(op, "lookup", KindNotFound, fmt.Errorf("key %q", key))
	case len(trashed) == 0:
		logger.Debug("Restore: '%s' is not in trash", key)
		return nil
	case len(active) > 0:
		return newError(op, "check_conflict", KindConflict, fmt.Errorf("key %q is held by an active file", key))
	}

	target := newest(trashed)
	if _, err := s.meta.UpdateFile(ctx, ownerID, target.FileID, metadata.FileUpdate{
		IsDeleted: metadata.Bool(false),
		UpdatedAt: s.now(),
	}); err != nil {
		return metaErr(op, "update_record", err)
	}

	logger.Debug("Restore: owner=%s key='%s' id=%s", ownerID, key, target.FileID)
	return nil
}

// Purge permanently removes key: its trashed records, or the active record
// when nothing is trashed. The object is deleted first, then the records.
// Purging an absent key succeeds.
func (s *Service) Purge(ctx context.Context, ownerID, key string) (err error) {
	const op = "purge"
	start := time.Now()
	defer func() { s.observe(op, start, err) }()

	if err := validateOwner(op, ownerID); err != nil {
		return err
	}
	if key, err = validateKey(op, key); err != nil {
		return err
	}

	records, err := s.recordsWithKey(ctx, op, ownerID, key)
	if err != nil {
		return err
	}
	active, targets := splitByState(records)
	if len(targets) == 0 {
		targets = active
	}

	if len(targets) == len(records) {
		if err := s.objects.Delete(ctx, StorageKey(ownerID, key)); err != nil {
			return objectErr(op, "delete_object", err)
		}
	} else {
		logger.Debug("Purge: '%s' still referenced by an active record, keeping object", key)
	}

	for _, r := range targets {
		if err := s.meta.DeleteFile(ctx, ownerID, r.FileID); err != nil && !isRecordNotFound(err) {
			logger.Warn("Purge: object '%s' deleted but record %s remains: %v", key, r.FileID, err)
			return metaErr(op, "delete_record", err)
		}
	}

	logger.Debug("Purge: owner=%s key='%s' records=%d", ownerID, key, len(targets))
	return nil
}

// ListTrash returns the owner's trash view.
func (s *Service) ListTrash(ctx context.Context, ownerID string) (entries []listing.TrashEntry, err error) {
	const op = "list_trash"
	start := time.Now()
	defer func() { s.observe(op, start, err) }()

	if err := validateOwner(op, ownerID); err != nil {
		return nil, err
	}

	records, err := s.meta.ScanFiles(ctx, metadata.FileFilter{OwnerID: ownerID, Deleted: metadata.Bool(true)})
	if err != nil {
		return nil, metaErr(op, "scan_records", err)
	}
	return listing.Trash(records), nil
}

// PurgeFailure is one record EmptyTrash could not remove.
type PurgeFailure struct {
	Key    string `json:"key"`
	FileID string `json:"fileId"`
	Err    error  `json:"-"`
}

// EmptyTrashResult reports the outcome of EmptyTrash.
type EmptyTrashResult struct {
	Purged   int            `json:"purged"`
	Failures []PurgeFailure `json:"failures"`
}

// EmptyTrash purges every trashed record of ownerID. Each record is purged
// independently: a failure is collected and the batch continues. When ctx is
// done the batch stops and the partial result is returned with the error.
func (s *Service) EmptyTrash(ctx context.Context, ownerID string) (res *EmptyTrashResult, err error) {
	const op = "empty_trash"
	start := time.Now()
	defer func() { s.observe(op, start, err) }()

	if err := validateOwner(op, ownerID); err != nil {
		return nil, err
	}

	records, err := s.meta.ScanFiles(ctx, metadata.FileFilter{OwnerID: ownerID})
	if err != nil {
		return nil, metaErr(op, "scan_records", err)
	}

	res = &EmptyTrashResult{Failures: []PurgeFailure{}}
	removed := make(map[string]bool)

	for _, r := range records {
		if !r.IsDeleted {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, newError(op, "purge_record", KindTimeout, err)
		}

		if err := s.purgeRecord(ctx, op, r, records, removed); err != nil {
			logger.Warn("EmptyTrash: failed to purge '%s' (id=%s): %v", r.ObjectKey, r.FileID, err)
			res.Failures = append(res.Failures, PurgeFailure{Key: r.ObjectKey, FileID: r.FileID, Err: err})
			continue
		}
		removed[r.FileID] = true
		res.Purged++
	}

	logger.Info("EmptyTrash: owner=%s purged=%d failed=%d", ownerID, res.Purged, len(res.Failures))
	return res, nil
}

// PurgeRecord removes one trashed record and, when nothing else references
// its key, its object. It is the unit of work for trash retention.
func (s *Service) PurgeRecord(ctx context.Context, r *metadata.FileRecord) (err error) {
	const op = "purge"
	start := time.Now()
	defer func() { s.observe(op, start, err) }()

	others, err := s.recordsWithKey(ctx, op, r.OwnerID, r.ObjectKey)
	if err != nil {
		return err
	}
	return s.purgeRecord(ctx, op, r, others, nil)
}

// purgeRecord deletes r's object unless another surviving record in records
// shares its key, then deletes r.
func (s *Service) purgeRecord(ctx context.Context, op string, r *metadata.FileRecord, records []*metadata.FileRecord, removed map[string]bool) error {
	shared := false
	for _, other := range records {
		if other.FileID != r.FileID && other.ObjectKey == r.ObjectKey && !removed[other.FileID] {
			shared = true
			break
		}
	}

	if !shared {
		if err := s.objects.Delete(ctx, StorageKey(r.OwnerID, r.ObjectKey)); err != nil {
			return objectErr(op, "delete_object", err)
		}
	}
	if err := s.meta.DeleteFile(ctx, r.OwnerID, r.FileID); err != nil && !isRecordNotFound(err) {
		return metaErr(op, "delete_record", err)
	}
	return nil
}

// TrashURL returns a download URL for a trashed key: a fresh presign, or the
// cached URL when presigning fails.
func (s *Service) TrashURL(ctx context.Context, ownerID, key string) (url string, err error) {
	const op = "trash_url"
	start := time.Now()
	defer func() { s.observe(op, start, err) }()

	if err := validateOwner(op, ownerID); err != nil {
		return "", err
	}
	if key, err = validateKey(op, key); err != nil {
		return "", err
	}

	records, err := s.recordsWithKey(ctx, op, ownerID, key)
	if err != nil {
		return "", err
	}
	_, trashed := splitByState(records)
	if len(trashed) == 0 {
		return "", newError(op, "lookup", KindNotFound, fmt.Errorf("key %q is not in trash", key))
	}

	target := newest(trashed)
	url, err = s.presign(ctx, target)
	if err == nil && url != "" {
		return url, nil
	}
	if target.CachedURL != "" {
		logger.Debug("TrashURL: presign of '%s' failed, serving cached URL: %v", key, err)
		s.metrics.RecordPresignFallbacks(1)
		return target.CachedURL, nil
	}
	return "", objectErr(op, "presign", err)
}

// newest returns the record with the latest modification.
func newest(records []*metadata.FileRecord) *metadata.FileRecord {
	best := records[0]
	for _, r := range records[1:] {
		if modified(r).After(modified(best)) {
			best = r
		}
	}
	return best
}

func modified(r *metadata.FileRecord) time.Time {
	t := r.UpdatedAt
	if r.DeletedAt != nil && r.DeletedAt.After(t) {
		t = *r.DeletedAt
	}
	return t
}
