// Package object defines the object store adapter used by the drive.
//
// An object store is a flat, key-addressed blob service. It has no notion of
// ownership, folders or deletion state; those live in the metadata store.
// Keys handed to a Store are already namespaced by the caller.
package object

import (
	"context"
	"io"
	"strings"
	"time"
)

// DefaultContentType is used when a caller does not know the content type.
const DefaultContentType = "application/octet-stream"

// Store is the uniform interface over blob backends (memory, filesystem, S3).
//
// Atomicity:
// Every method is atomic for a single key from the caller's perspective: a
// concurrent reader observes either the old or the new object, never a torn
// write. Nothing is atomic across two keys; Copy followed by Delete is two
// independent operations and callers must tolerate a failure between them.
//
// Context Cancellation:
// All methods check the context before doing I/O and return ctx.Err()
// unwrapped, so deadline errors stay distinguishable.
//
// Thread Safety:
// Implementations must be safe for concurrent use.
type Store interface {
	// Put writes data under key, replacing any existing object.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - key: Storage key
	//   - data: Object bytes (may be empty)
	//   - contentType: MIME type recorded with the object when supported
	//
	// Returns:
	//   - error: ErrInvalidKey, transport errors, or context errors
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Get returns a reader for the object stored under key.
	//
	// The caller must close the returned reader.
	//
	// Returns:
	//   - io.ReadCloser: Object content
	//   - error: ErrObjectNotFound if the key does not exist
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object stored under key.
	//
	// Delete is idempotent: deleting a missing key returns nil.
	Delete(ctx context.Context, key string) error

	// Copy duplicates the object at srcKey to dstKey, replacing dstKey.
	//
	// Returns:
	//   - error: ErrObjectNotFound if srcKey does not exist
	Copy(ctx context.Context, srcKey, dstKey string) error

	// Presign returns a URL granting read access to key until now+ttl.
	//
	// Presigned URLs are capability tokens and are always regenerable from the
	// key; callers must never treat a stored URL as the source of truth.
	Presign(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// Close releases resources held by the store.
	Close() error
}

// ObjectInfo describes a stored object during listing.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time

	// ContentType is only populated by Stat.
	ContentType string
}

// Statter is implemented by stores that can describe a single object without
// reading it. The API's blob endpoint uses it to set response headers.
type Statter interface {
	Stat(ctx context.Context, key string) (*ObjectInfo, error)
}

// GarbageCollectable is implemented by stores that can enumerate and
// batch-delete their objects. The reconciliation sweep requires it.
type GarbageCollectable interface {
	// ListKeys returns every object whose key starts with prefix.
	ListKeys(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// DeleteBatch deletes keys and returns per-key failures. A non-nil error
	// means the whole batch failed.
	DeleteBatch(ctx context.Context, keys []string) (map[string]error, error)
}

// NormalizeKey trims surrounding whitespace and separators from a key.
func NormalizeKey(key string) string {
	return strings.Trim(strings.TrimSpace(key), "/")
}
