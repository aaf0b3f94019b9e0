package drive

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/store/metadata"
)

// UploadRequest describes one file upload.
type UploadRequest struct {
	OwnerID     string
	Name        string
	Data        []byte
	ContentType string

	// FolderID is the destination folder path ("" = root). Name may itself
	// contain separators; the key is FolderID/Name, normalized.
	FolderID string

	// FileID, when set, makes the upload idempotent: an existing record with
	// this id is returned unchanged.
	FileID string
}

// Upload stores req.Data and creates its record.
//
// A key held by any of the owner's records, trashed ones included, is a
// conflict: the trashed record still owns the object bytes at that key.
//
// The object is written before the record. If the object write fails no
// record is created; if the record write fails the object is left orphaned
// for the gc sweep.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (rec *metadata.FileRecord, err error) {
	const op = "upload"
	start := time.Now()
	defer func() { s.observe(op, start, err) }()

	if err := validateOwner(op, req.OwnerID); err != nil {
		return nil, err
	}
	key, err := validateKey(op, metadata.JoinPath(req.FolderID, req.Name))
	if err != nil {
		return nil, err
	}
	size := int64(len(req.Data))
	if s.maxUploadBytes > 0 && size > s.maxUploadBytes {
		return nil, newError(op, "validate_size", KindInvalidArgument,
			fmt.Errorf("%d bytes exceeds the %d byte upload limit", size, s.maxUploadBytes))
	}

	records, err := s.meta.ScanFiles(ctx, metadata.FileFilter{OwnerID: req.OwnerID})
	if err != nil {
		return nil, metaErr(op, "scan_records", err)
	}

	if req.FileID != "" {
		for _, r := range records {
			if r.FileID == req.FileID {
				logger.Debug("Upload: file id %s already stored for owner=%s, returning existing record", req.FileID, req.OwnerID)
				return r, nil
			}
		}
	}

	if used := UsedBytes(records); !s.quota.Allows(req.OwnerID, used, size) {
		s.metrics.RecordQuotaRejection()
		return nil, newError(op, "check_quota", KindQuotaExceeded,
			fmt.Errorf("used %d + %d bytes exceeds limit %d", used, size, s.quota.Limit(req.OwnerID)))
	}

	if err := keyOccupied(op, records, "", key); err != nil {
		return nil, err
	}

	rec = metadata.NewFileRecord(req.OwnerID, req.FileID, key, size, req.ContentType, metadata.NormalizePath(req.FolderID), s.now())

	if err := s.objects.Put(ctx, StorageKey(req.OwnerID, key), req.Data, rec.ContentType); err != nil {
		return nil, objectErr(op, "put_object", err)
	}

	if url, err := s.presign(ctx, rec); err != nil {
		logger.Debug("Upload: presign of '%s' failed, record stored without cached URL: %v", key, err)
	} else {
		rec.CachedURL = url
	}

	if err := s.meta.PutFile(ctx, rec); err != nil {
		logger.Warn("Upload: object '%s' stored but record write failed, object orphaned: %v", key, err)
		s.metrics.RecordLeak(op)
		return nil, metaErr(op, "put_record", err)
	}

	logger.Debug("Upload: owner=%s key='%s' size=%d id=%s", req.OwnerID, key, size, rec.FileID)
	return rec, nil
}
