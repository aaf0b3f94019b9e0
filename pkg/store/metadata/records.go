package metadata

import (
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultContentType is recorded when an upload does not declare one.
const DefaultContentType = "application/octet-stream"

// FileRecord is the metadata for one stored file.
//
// Invariants:
//   - (OwnerID, FileID) is unique
//   - ObjectKey is unique within an owner's active (non-deleted) records
//   - CreatedAt never changes after creation
//   - DeletedAt is non-nil exactly when IsDeleted is true
type FileRecord struct {
	OwnerID     string     `json:"owner_id"`
	FileID      string     `json:"file_id"`
	ObjectKey   string     `json:"object_key"`
	DisplayName string     `json:"display_name"`
	Size        int64      `json:"size"`
	ContentType string     `json:"content_type"`
	FolderID    string     `json:"folder_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	IsDeleted   bool       `json:"is_deleted"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`

	// CachedURL is the last presigned URL handed out. It is a fallback only
	// and must not be trusted when freshness matters.
	CachedURL string `json:"cached_url,omitempty"`
}

// NewFileRecord builds an active record with defaults applied. An empty
// fileID gets a fresh UUID.
func NewFileRecord(ownerID, fileID, objectKey string, size int64, contentType, folderID string, now time.Time) *FileRecord {
	if fileID == "" {
		fileID = uuid.NewString()
	}
	if contentType == "" {
		contentType = DefaultContentType
	}
	return &FileRecord{
		OwnerID:     ownerID,
		FileID:      fileID,
		ObjectKey:   objectKey,
		DisplayName: path.Base(objectKey),
		Size:        size,
		ContentType: contentType,
		FolderID:    folderID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Clone returns a deep copy of r.
func (r *FileRecord) Clone() *FileRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.DeletedAt != nil {
		t := *r.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}

// FileUpdate is a targeted attribute update. Nil fields are left unchanged.
type FileUpdate struct {
	ObjectKey   *string
	DisplayName *string

	// IsDeleted toggles trash state. When set to true DeletedAt is recorded,
	// when set to false DeletedAt is cleared.
	IsDeleted *bool
	DeletedAt *time.Time

	CachedURL *string

	// UpdatedAt is applied when non-zero.
	UpdatedAt time.Time
}

// Apply mutates r according to u.
func (u FileUpdate) Apply(r *FileRecord) {
	if u.ObjectKey != nil {
		r.ObjectKey = *u.ObjectKey
	}
	if u.DisplayName != nil {
		r.DisplayName = *u.DisplayName
	}
	if u.IsDeleted != nil {
		r.IsDeleted = *u.IsDeleted
		if r.IsDeleted && u.DeletedAt != nil {
			t := *u.DeletedAt
			r.DeletedAt = &t
		} else if !r.IsDeleted {
			r.DeletedAt = nil
		}
	}
	if u.CachedURL != nil {
		r.CachedURL = *u.CachedURL
	}
	if !u.UpdatedAt.IsZero() {
		r.UpdatedAt = u.UpdatedAt
	}
}

// FileFilter selects records in ScanFiles. Zero-valued fields match anything.
type FileFilter struct {
	// OwnerID restricts to one owner; "" scans every owner.
	OwnerID string

	// ObjectKey matches exactly.
	ObjectKey string

	// KeyPrefix matches records whose ObjectKey starts with it.
	KeyPrefix string

	// Deleted matches on trash state when non-nil.
	Deleted *bool

	// DeletedBefore matches trashed records deleted strictly before it.
	DeletedBefore time.Time
}

// Match reports whether r satisfies every condition of f.
func (f FileFilter) Match(r *FileRecord) bool {
	if f.OwnerID != "" && r.OwnerID != f.OwnerID {
		return false
	}
	if f.ObjectKey != "" && r.ObjectKey != f.ObjectKey {
		return false
	}
	if f.KeyPrefix != "" && !strings.HasPrefix(r.ObjectKey, f.KeyPrefix) {
		return false
	}
	if f.Deleted != nil && r.IsDeleted != *f.Deleted {
		return false
	}
	if !f.DeletedBefore.IsZero() {
		if !r.IsDeleted || r.DeletedAt == nil || !r.DeletedAt.Before(f.DeletedBefore) {
			return false
		}
	}
	return true
}

// Bool returns a pointer to b, for filter and update fields.
func Bool(b bool) *bool { return &b }

// String returns a pointer to s.
func String(s string) *string { return &s }

// FolderRecord registers an explicit folder. Folders exist independently of
// the files below them.
type FolderRecord struct {
	FolderID       string    `json:"folder_id"`
	OwnerID        string    `json:"owner_id"`
	Name           string    `json:"name"`
	ParentFolderID *string   `json:"parent_folder_id,omitempty"`
	ParentPath     string    `json:"parent_path"`
	CreatedAt      time.Time `json:"created_at"`
}

// Path is the folder's full normalized path.
func (f *FolderRecord) Path() string {
	return JoinPath(f.ParentPath, f.Name)
}

// Clone returns a deep copy of f.
func (f *FolderRecord) Clone() *FolderRecord {
	if f == nil {
		return nil
	}
	c := *f
	if f.ParentFolderID != nil {
		id := *f.ParentFolderID
		c.ParentFolderID = &id
	}
	return &c
}

// FolderFilter selects folders in ScanFolders.
type FolderFilter struct {
	// OwnerID restricts to one owner; "" scans every owner.
	OwnerID string

	// ParentPath matches exactly when non-nil ("" is the root).
	ParentPath *string

	// Name matches exactly when non-empty.
	Name string
}

// Match reports whether f satisfies the filter.
func (ff FolderFilter) Match(f *FolderRecord) bool {
	if ff.OwnerID != "" && f.OwnerID != ff.OwnerID {
		return false
	}
	if ff.ParentPath != nil && f.ParentPath != *ff.ParentPath {
		return false
	}
	if ff.Name != "" && f.Name != ff.Name {
		return false
	}
	return true
}

// NormalizePath trims whitespace and surrounding slashes and collapses empty
// segments, so "/a//b/" becomes "a/b".
func NormalizePath(p string) string {
	parts := strings.Split(strings.TrimSpace(p), "/")
	kept := parts[:0]
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, "/")
}

// JoinPath joins path segments and normalizes the result.
func JoinPath(elems ...string) string {
	return NormalizePath(strings.Join(elems, "/"))
}
