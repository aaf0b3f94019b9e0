// Package listing reconstructs a hierarchical folder view from flat object
// keys.
//
// Keys are "folder/subfolder/name" strings. For a given prefix the engine
// produces the immediate files and the immediate child folders, merging
// folders implied by deeper keys with explicitly registered ones.
package listing

import (
	"context"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/marmos91/dittodrive/pkg/store/metadata"
)

// FileEntry is an immediate file at the listed level.
type FileEntry struct {
	Name       string    `json:"name"`
	Key        string    `json:"key"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modifiedAt"`
	URL        string    `json:"url,omitempty"`
}

// FolderEntry is an immediate child folder of the listed level.
type FolderEntry struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// Listing is the two-level view of one prefix.
type Listing struct {
	Prefix  string        `json:"prefix"`
	Files   []FileEntry   `json:"files"`
	Folders []FolderEntry `json:"folders"`

	// PresignFallbacks counts files whose URL came from the cached value
	// because presigning failed.
	PresignFallbacks int `json:"-"`
}

// PresignFunc mints a fresh URL for a record.
type PresignFunc func(ctx context.Context, record *metadata.FileRecord) (string, error)

// Build lists the immediate files and folders under prefix.
//
// Deleted records are ignored. A record whose key ends with "/" is a folder
// marker: it implies a folder but never appears as a file. presign may be nil,
// in which case cached URLs are used as-is.
//
// Build only fails when ctx is done.
func Build(
	ctx context.Context,
	prefix string,
	files []*metadata.FileRecord,
	folders []*metadata.FolderRecord,
	presign PresignFunc,
) (*Listing, error) {
	prefix = metadata.NormalizePath(prefix)
	out := &Listing{
		Prefix:  prefix,
		Files:   []FileEntry{},
		Folders: []FolderEntry{},
	}

	implied := make(map[string]*FolderEntry)
	seenFiles := make(map[string]bool)

	for _, r := range files {
		if r.IsDeleted {
			continue
		}

		segments, ok := relativeSegments(prefix, r.ObjectKey)
		if !ok || len(segments) == 0 {
			continue
		}

		marker := strings.HasSuffix(strings.TrimSpace(r.ObjectKey), "/")
		if len(segments) > 1 || marker {
			name := segments[0]
			entry, exists := implied[name]
			if !exists {
				entry = &FolderEntry{Name: name, Path: metadata.JoinPath(prefix, name)}
				implied[name] = entry
			}
			if r.UpdatedAt.After(entry.ModifiedAt) {
				entry.ModifiedAt = r.UpdatedAt
			}
			continue
		}

		key := metadata.NormalizePath(r.ObjectKey)
		if seenFiles[key] {
			// An active key is unique per owner; a duplicate means the
			// invariant was broken upstream. Show it once.
			continue
		}
		seenFiles[key] = true

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		url, fallback := resolveURL(ctx, r, presign)
		if fallback {
			out.PresignFallbacks++
		}

		out.Files = append(out.Files, FileEntry{
			Name:       segments[0],
			Key:        key,
			Size:       r.Size,
			ModifiedAt: r.UpdatedAt,
			URL:        url,
		})
	}

	for _, f := range folders {
		if metadata.NormalizePath(f.ParentPath) != prefix {
			continue
		}
		name := metadata.NormalizePath(f.Name)
		if name == "" || strings.Contains(name, "/") {
			continue
		}
		if entry, exists := implied[name]; exists {
			if f.CreatedAt.After(entry.ModifiedAt) {
				entry.ModifiedAt = f.CreatedAt
			}
			continue
		}
		implied[name] = &FolderEntry{
			Name:       name,
			Path:       metadata.JoinPath(prefix, name),
			ModifiedAt: f.CreatedAt,
		}
	}

	for _, entry := range implied {
		out.Folders = append(out.Folders, *entry)
	}

	sort.Slice(out.Files, func(i, j int) bool { return out.Files[i].Name < out.Files[j].Name })
	sort.Slice(out.Folders, func(i, j int) bool { return out.Folders[i].Name < out.Folders[j].Name })

	return out, nil
}

// relativeSegments strips prefix and its separator from key and splits the
// remainder, dropping empty segments. ok is false when key is not below
// prefix.
func relativeSegments(prefix, key string) ([]string, bool) {
	key = metadata.NormalizePath(key)
	relative := key
	if prefix != "" {
		if !strings.HasPrefix(key, prefix+"/") {
			return nil, false
		}
		relative = key[len(prefix)+1:]
	}

	var segments []string
	for _, seg := range strings.Split(relative, "/") {
		if seg = strings.TrimSpace(seg); seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments, true
}

// resolveURL presigns r, falling back to its cached URL. fallback reports
// whether the cached value was used.
func resolveURL(ctx context.Context, r *metadata.FileRecord, presign PresignFunc) (url string, fallback bool) {
	if presign == nil {
		return r.CachedURL, r.CachedURL != ""
	}
	url, err := presign(ctx, r)
	if err != nil || url == "" {
		return r.CachedURL, true
	}
	return url, false
}

// ============================================================================
// Trash
// ============================================================================

// Entry kinds in a trash listing.
const (
	KindFile   = "file"
	KindFolder = "folder"
)

// TrashEntry is one item in the trash view.
type TrashEntry struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	ModifiedAt time.Time `json:"modifiedAt"`
	Size       int64     `json:"size"`
	Kind       string    `json:"kind"`
}

// Trash builds the trash view from the owner's records.
//
// Only deleted records are considered. Records sharing a logical path (for
// example a stale deleted pointer left by a rename) collapse to the one with
// the most recent modification time. Entries are sorted by path.
func Trash(files []*metadata.FileRecord) []TrashEntry {
	newest := make(map[string]TrashEntry)

	for _, r := range files {
		if !r.IsDeleted {
			continue
		}

		logical := metadata.NormalizePath(r.ObjectKey)
		if logical == "" {
			continue
		}

		kind := KindFile
		if strings.HasSuffix(strings.TrimSpace(r.ObjectKey), "/") {
			kind = KindFolder
		}

		entry := TrashEntry{
			Name:       path.Base(logical),
			Path:       r.ObjectKey,
			ModifiedAt: modifiedAt(r),
			Size:       r.Size,
			Kind:       kind,
		}

		existing, ok := newest[logical]
		if !ok || entry.ModifiedAt.After(existing.ModifiedAt) {
			newest[logical] = entry
		}
	}

	out := make([]TrashEntry, 0, len(newest))
	for _, entry := range newest {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// modifiedAt is the freshness used for trash deduplication.
func modifiedAt(r *metadata.FileRecord) time.Time {
	t := r.UpdatedAt
	if r.DeletedAt != nil && r.DeletedAt.After(t) {
		t = *r.DeletedAt
	}
	if t.IsZero() {
		t = r.CreatedAt
	}
	return t
}
