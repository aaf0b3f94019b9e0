// Package metadata defines the metadata store adapter: the system of record
// for file and folder records.
//
// The metadata store is authoritative for everything a user sees (names,
// sizes, trash state). It never touches object bytes; coordination with the
// object store is the drive service's job.
package metadata

import (
	"context"
)

// ============================================================================
// Store Interface
// ============================================================================

// Store persists FileRecords and FolderRecords.
//
// Atomicity:
// Each method is atomic for a single record. There are no multi-record
// transactions; callers sequence multi-step operations themselves.
//
// Lookup by ObjectKey:
// Records are addressed by (OwnerID, FileID). Lookups by ObjectKey go through
// ScanFiles, which is a linear scan over the owner's records in every
// backend except sql (which uses an index). That scan is the scalability
// ceiling of the design.
//
// Context Cancellation:
// All methods check the context first and return ctx.Err() unwrapped.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
type Store interface {
	// ========================================================================
	// File Records
	// ========================================================================

	// GetFile returns the record identified by (ownerID, fileID).
	//
	// Returns:
	//   - *FileRecord: A copy of the stored record
	//   - error: ErrRecordNotFound if absent, or context errors
	GetFile(ctx context.Context, ownerID, fileID string) (*FileRecord, error)

	// PutFile inserts or fully replaces a record.
	//
	// Returns:
	//   - error: ErrInvalidRecord if OwnerID or FileID is empty
	PutFile(ctx context.Context, record *FileRecord) error

	// UpdateFile applies a targeted update and returns the updated record.
	//
	// Returns:
	//   - *FileRecord: The record after the update
	//   - error: ErrRecordNotFound if absent
	UpdateFile(ctx context.Context, ownerID, fileID string, update FileUpdate) (*FileRecord, error)

	// DeleteFile removes a record.
	//
	// Returns:
	//   - error: ErrRecordNotFound if absent
	DeleteFile(ctx context.Context, ownerID, fileID string) error

	// ScanFiles returns every record matching filter, in no particular order.
	ScanFiles(ctx context.Context, filter FileFilter) ([]*FileRecord, error)

	// ========================================================================
	// Folder Records
	// ========================================================================

	// PutFolder inserts or replaces a folder record.
	PutFolder(ctx context.Context, folder *FolderRecord) error

	// GetFolder returns a folder by id.
	//
	// Returns:
	//   - error: ErrRecordNotFound if absent
	GetFolder(ctx context.Context, ownerID, folderID string) (*FolderRecord, error)

	// ScanFolders returns every folder matching filter.
	ScanFolders(ctx context.Context, filter FolderFilter) ([]*FolderRecord, error)

	// Close releases resources held by the store.
	Close() error
}

// ValidateFile checks the fields every backend requires.
func ValidateFile(r *FileRecord) error {
	if r == nil || r.OwnerID == "" || r.FileID == "" {
		return ErrInvalidRecord
	}
	return nil
}

// ValidateFolder checks the fields every backend requires.
func ValidateFolder(f *FolderRecord) error {
	if f == nil || f.OwnerID == "" || f.FolderID == "" || f.Name == "" {
		return ErrInvalidRecord
	}
	return nil
}
