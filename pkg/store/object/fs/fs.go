// Package fs implements filesystem-based object storage for DittoDrive.
//
// Objects are stored as regular files below a base directory. Key segments
// become directories carrying a ".dir" suffix and the last segment a file
// carrying ".obj", so "a" (a.obj) and "a/b" (a.dir/b.obj) coexist as they do
// in a flat bucket. Writes go to a temporary file in the same directory and
// are renamed into place, so readers never see a partial object.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/dittodrive/pkg/store/object"
)

const (
	objectSuffix = ".obj"
	dirSuffix    = ".dir"
)

// FSObjectStore implements object.Store using the local filesystem.
//
// Thread Safety:
// Put and Copy are atomic per key thanks to rename(2). Concurrent writers to
// the same key are last-writer-wins.
type FSObjectStore struct {
	basePath string
	signer   *object.URLSigner
}

// NewFSObjectStore creates a filesystem object store rooted at basePath.
//
// The base directory is created with permissions 0755 if it does not exist.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - basePath: Root directory for object files
//   - signer: URL signer used by Presign (nil disables presigning)
//
// Returns:
//   - *FSObjectStore: Initialized store
//   - error: Returns error if directory creation fails or context is cancelled
func NewFSObjectStore(ctx context.Context, basePath string, signer *object.URLSigner) (*FSObjectStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if basePath == "" {
		return nil, fmt.Errorf("base path is required")
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base path: %w", err)
	}

	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FSObjectStore{
		basePath: abs,
		signer:   signer,
	}, nil
}

// objectPath maps a key to its file below basePath. Empty segments are
// dropped; "." and ".." are rejected.
func (s *FSObjectStore) objectPath(key string) (string, error) {
	parts := []string{s.basePath}
	for _, seg := range strings.Split(object.NormalizeKey(key), "/") {
		switch seg {
		case "":
			continue
		case ".", "..":
			return "", fmt.Errorf("object %q escapes store root: %w", key, object.ErrInvalidKey)
		}
		parts = append(parts, seg+dirSuffix)
	}
	if len(parts) == 1 {
		return "", fmt.Errorf("object %q: %w", key, object.ErrInvalidKey)
	}

	last := len(parts) - 1
	parts[last] = strings.TrimSuffix(parts[last], dirSuffix) + objectSuffix
	return filepath.Join(parts...), nil
}

// keyFromPath inverts objectPath. ok is false for files that are not objects
// (temp files, strays).
func (s *FSObjectStore) keyFromPath(path string) (key string, ok bool) {
	rel, err := filepath.Rel(s.basePath, path)
	if err != nil {
		return "", false
	}

	segments := strings.Split(filepath.ToSlash(rel), "/")
	last := len(segments) - 1
	for i, seg := range segments {
		suffix := dirSuffix
		if i == last {
			suffix = objectSuffix
		}
		trimmed, found := strings.CutSuffix(seg, suffix)
		if !found || trimmed == "" {
			return "", false
		}
		segments[i] = trimmed
	}
	return strings.Join(segments, "/"), true
}

// Put writes data atomically under key.
func (s *FSObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.objectPath(key)
	if err != nil {
		return err
	}

	return writeAtomic(path, func(f *os.File) error {
		_, err := f.Write(data)
		return err
	})
}

// writeAtomic writes through fill into a temp file next to path, syncs it and
// renames it over path.
func writeAtomic(path string, fill func(*os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.part")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := fill(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to sync object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close object: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to commit object: %w", err)
	}
	return nil
}

// Get opens the object file for reading.
func (s *FSObjectStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.objectPath(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("object %s: %w", key, object.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	return f, nil
}

// Delete removes the object file and prunes now-empty parent directories.
func (s *FSObjectStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.objectPath(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	s.pruneEmptyDirs(filepath.Dir(path))
	return nil
}

// pruneEmptyDirs removes empty directories from dir up to (not including) the
// base path. Errors are ignored: a non-empty directory simply stops the walk.
func (s *FSObjectStore) pruneEmptyDirs(dir string) {
	for dir != s.basePath && strings.HasPrefix(dir, s.basePath) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// Copy duplicates srcKey into dstKey.
func (s *FSObjectStore) Copy(ctx context.Context, srcKey, dstKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	srcPath, err := s.objectPath(srcKey)
	if err != nil {
		return err
	}
	dstPath, err := s.objectPath(dstKey)
	if err != nil {
		return err
	}

	src, err := os.Open(srcPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("object %s: %w", srcKey, object.ErrObjectNotFound)
		}
		return fmt.Errorf("failed to open source object: %w", err)
	}
	defer func() { _ = src.Close() }()

	return writeAtomic(dstPath, func(f *os.File) error {
		_, err := io.Copy(f, src)
		return err
	})
}

// Presign returns a signed blob URL for key.
func (s *FSObjectStore) Presign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if s.signer == nil {
		return "", fmt.Errorf("presigning is not configured for the filesystem store")
	}

	exists, err := s.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("object %s: %w", key, object.ErrObjectNotFound)
	}

	return s.signer.Sign(object.NormalizeKey(key), ttl)
}

// Exists reports whether the object file exists.
func (s *FSObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	path, err := s.objectPath(key)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object: %w", err)
	}
	return !info.IsDir(), nil
}

// Stat describes key. The content type is derived from the key's extension
// since the filesystem store does not persist it.
func (s *FSObjectStore) Stat(ctx context.Context, key string) (*object.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.objectPath(key)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("object %s: %w", key, object.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(object.NormalizeKey(key)))
	if contentType == "" {
		contentType = object.DefaultContentType
	}

	return &object.ObjectInfo{
		Key:          object.NormalizeKey(key),
		Size:         info.Size(),
		LastModified: info.ModTime(),
		ContentType:  contentType,
	}, nil
}

// ListKeys walks the base directory and returns objects under prefix.
// Temporary files from in-flight writes carry no object suffix and are
// skipped.
func (s *FSObjectStore) ListKeys(ctx context.Context, prefix string) ([]object.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var infos []object.ObjectInfo
	err := filepath.WalkDir(s.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		key, ok := s.keyFromPath(path)
		if !ok || !strings.HasPrefix(key, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		infos = append(infos, object.ObjectInfo{
			Key:          key,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	return infos, nil
}

// DeleteBatch deletes keys one by one and collects failures.
func (s *FSObjectStore) DeleteBatch(ctx context.Context, keys []string) (map[string]error, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	failures := make(map[string]error)
	for _, key := range keys {
		if err := s.Delete(ctx, key); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return failures, ctxErr
			}
			failures[key] = err
		}
	}
	return failures, nil
}

// Close is a no-op.
func (s *FSObjectStore) Close() error {
	return nil
}

var (
	_ object.Store              = (*FSObjectStore)(nil)
	_ object.GarbageCollectable = (*FSObjectStore)(nil)
	_ object.Statter            = (*FSObjectStore)(nil)
)
