package drive

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/store/metadata"
)

// RenameResult is the outcome of a rename.
type RenameResult struct {
	NewKey string               `json:"newKey"`
	URL    string               `json:"url"`
	File   *metadata.FileRecord `json:"-"`
}

// Rename replaces the last segment of currentKey with newName.
//
// Steps: copy old -> new, delete old, update the record. A failed delete of
// the old key is logged and counted as a leak; the rename still commits.
// FileID and CreatedAt are preserved. A destination key held by any other
// record, trashed or active, is a conflict.
func (s *Service) Rename(ctx context.Context, ownerID, currentKey, newName string) (res *RenameResult, err error) {
	const op = "rename"
	start := time.Now()
	defer func() { s.observe(op, start, err) }()

	if err := validateOwner(op, ownerID); err != nil {
		return nil, err
	}
	oldKey, err := validateKey(op, currentKey)
	if err != nil {
		return nil, err
	}
	newName = strings.TrimSpace(newName)
	if newName == "" || strings.Contains(newName, "/") || newName == "." || newName == ".." {
		return nil, newError(op, "validate", KindInvalidArgument, fmt.Errorf("invalid name %q", newName))
	}

	records, err := s.meta.ScanFiles(ctx, metadata.FileFilter{OwnerID: ownerID})
	if err != nil {
		return nil, metaErr(op, "scan_records", err)
	}

	var current *metadata.FileRecord
	for _, r := range records {
		if !r.IsDeleted && r.ObjectKey == oldKey {
			current = r
			break
		}
	}
	if current == nil {
		return nil, newError(op, "lookup", KindNotFound, fmt.Errorf("key %q", oldKey))
	}

	dir := path.Dir(oldKey)
	if dir == "." {
		dir = ""
	}
	destKey := metadata.JoinPath(dir, newName)

	if destKey == oldKey {
		logger.Debug("Rename: no-op rename (same location) for '%s'", oldKey)
		url, presignErr := s.presign(ctx, current)
		if presignErr != nil || url == "" {
			logger.Debug("Rename: presign of '%s' failed, serving cached URL: %v", oldKey, presignErr)
			s.metrics.RecordPresignFallbacks(1)
			url = current.CachedURL
		}
		return &RenameResult{NewKey: oldKey, URL: url, File: current}, nil
	}

	if err := keyOccupied(op, records, current.FileID, destKey); err != nil {
		return nil, err
	}

	oldShared := false
	for _, r := range records {
		if r.FileID == current.FileID {
			continue
		}
		if r.ObjectKey == oldKey {
			oldShared = true
		}
	}

	if err := s.objects.Copy(ctx, StorageKey(ownerID, oldKey), StorageKey(ownerID, destKey)); err != nil {
		return nil, objectErr(op, "copy_object", err)
	}

	if oldShared {
		logger.Debug("Rename: '%s' still referenced by another record, keeping old object", oldKey)
	} else if err := s.objects.Delete(ctx, StorageKey(ownerID, oldKey)); err != nil {
		logger.Warn("Rename: failed to delete old object '%s' after copy, leaking it: %v", oldKey, err)
		s.metrics.RecordLeak(op)
	}

	update := metadata.FileUpdate{
		ObjectKey:   metadata.String(destKey),
		DisplayName: metadata.String(newName),
		UpdatedAt:   s.now(),
	}
	probe := current.Clone()
	probe.ObjectKey = destKey
	url, presignErr := s.presign(ctx, probe)
	if presignErr == nil {
		update.CachedURL = metadata.String(url)
	} else {
		logger.Debug("Rename: presign of '%s' failed: %v", destKey, presignErr)
	}

	updated, err := s.meta.UpdateFile(ctx, ownerID, current.FileID, update)
	if err != nil {
		return nil, metaErr(op, "update_record", err)
	}

	logger.Debug("Rename: renamed '%s' -> '%s' (id=%s)", oldKey, destKey, updated.FileID)
	return &RenameResult{NewKey: destKey, URL: url, File: updated}, nil
}
