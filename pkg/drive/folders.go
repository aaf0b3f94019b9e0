package drive

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/store/metadata"
)

// FolderRegistry manages explicitly created folders. Registered folders are
// independent of the files below them: they appear in listings while empty
// and are never removed by file operations.
type FolderRegistry struct {
	meta metadata.Store
	now  func() time.Time
}

// NewFolderRegistry creates a registry over meta.
func NewFolderRegistry(meta metadata.Store, now func() time.Time) *FolderRegistry {
	if now == nil {
		now = time.Now
	}
	return &FolderRegistry{meta: meta, now: now}
}

// Create registers folder name under parentPath.
//
// The name must be a single non-empty path segment. Creating a folder whose
// name is already registered under the same parent, or whose path is held by
// an active file, returns a conflict. The parent must be the root, a
// registered folder or a folder implied by an active file key; otherwise the
// result is not found. A registered parent is linked through ParentFolderID.
func (r *FolderRegistry) Create(ctx context.Context, ownerID, name, parentPath string) (*metadata.FolderRecord, error) {
	const op = "create_folder"

	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, "/") || name == "." || name == ".." {
		return nil, newError(op, "validate", KindInvalidArgument, fmt.Errorf("invalid folder name %q", name))
	}
	parentPath = metadata.NormalizePath(parentPath)
	folderPath := metadata.JoinPath(parentPath, name)

	existing, err := r.meta.ScanFolders(ctx, metadata.FolderFilter{OwnerID: ownerID, ParentPath: &parentPath, Name: name})
	if err != nil {
		return nil, metaErr(op, "scan_folders", err)
	}
	if len(existing) > 0 {
		return nil, newError(op, "check_conflict", KindConflict, fmt.Errorf("folder %q already exists", folderPath))
	}

	occupied, err := r.meta.ScanFiles(ctx, metadata.FileFilter{OwnerID: ownerID, ObjectKey: folderPath, Deleted: metadata.Bool(false)})
	if err != nil {
		return nil, metaErr(op, "scan_records", err)
	}
	if len(occupied) > 0 {
		return nil, newError(op, "check_conflict", KindConflict, fmt.Errorf("file %q already exists", folderPath))
	}

	folder := &metadata.FolderRecord{
		FolderID:   uuid.NewString(),
		OwnerID:    ownerID,
		Name:       name,
		ParentPath: parentPath,
		CreatedAt:  r.now(),
	}

	if parentPath != "" {
		parent, err := r.lookup(ctx, ownerID, parentPath)
		if err != nil {
			return nil, metaErr(op, "scan_folders", err)
		}
		if parent != nil {
			folder.ParentFolderID = &parent.FolderID
		} else {
			implied, err := r.meta.ScanFiles(ctx, metadata.FileFilter{OwnerID: ownerID, KeyPrefix: parentPath + "/", Deleted: metadata.Bool(false)})
			if err != nil {
				return nil, metaErr(op, "scan_records", err)
			}
			if len(implied) == 0 {
				return nil, newError(op, "lookup_parent", KindNotFound, fmt.Errorf("parent folder %q does not exist", parentPath))
			}
		}
	}

	if err := r.meta.PutFolder(ctx, folder); err != nil {
		return nil, metaErr(op, "put_folder", err)
	}

	logger.Debug("CreateFolder: owner=%s path='%s' id=%s", ownerID, folderPath, folder.FolderID)
	return folder, nil
}

// Children returns the registered folders directly under parentPath.
func (r *FolderRegistry) Children(ctx context.Context, ownerID, parentPath string) ([]*metadata.FolderRecord, error) {
	parentPath = metadata.NormalizePath(parentPath)
	return r.meta.ScanFolders(ctx, metadata.FolderFilter{OwnerID: ownerID, ParentPath: &parentPath})
}

// lookup finds the registered folder at folderPath, or nil.
func (r *FolderRegistry) lookup(ctx context.Context, ownerID, folderPath string) (*metadata.FolderRecord, error) {
	parent, name := path.Split(folderPath)
	parent = metadata.NormalizePath(parent)
	found, err := r.meta.ScanFolders(ctx, metadata.FolderFilter{OwnerID: ownerID, ParentPath: &parent, Name: name})
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return found[0], nil
}
