// Package memory implements an in-memory object store.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/marmos91/dittodrive/pkg/store/object"
)

// MemoryObjectStore implements object.Store using an in-memory map.
//
// It is designed for:
//   - Testing and development
//   - Ephemeral single-process deployments
//
// Characteristics:
//   - Volatile: Data lost on restart
//   - Memory-bound: Limited by available RAM
//   - Thread-safe: Protected by RWMutex
//   - Full-featured: Implements object.GarbageCollectable
//
// Presigned URLs are minted by an object.URLSigner and served by the API's
// blob endpoint. Without a signer, Presign returns a "memory://" URL that is
// only meaningful to tests.
type MemoryObjectStore struct {
	objects map[string]*entry
	signer  *object.URLSigner
	mu      sync.RWMutex
}

type entry struct {
	data        []byte
	contentType string
	modified    time.Time
}

// NewMemoryObjectStore creates an empty in-memory object store.
//
// Parameters:
//   - ctx: Context for cancellation (checked before initialization)
//   - signer: Optional URL signer for Presign (nil is allowed)
//
// Returns:
//   - *MemoryObjectStore: Initialized store
//   - error: Only returns error if context is cancelled
func NewMemoryObjectStore(ctx context.Context, signer *object.URLSigner) (*MemoryObjectStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &MemoryObjectStore{
		objects: make(map[string]*entry),
		signer:  signer,
	}, nil
}

// Put stores a copy of data under key.
func (s *MemoryObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return object.ErrInvalidKey
	}
	if contentType == "" {
		contentType = object.DefaultContentType
	}

	// Copy so the caller can reuse its buffer
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[key] = &entry{data: buf, contentType: contentType, modified: time.Now()}
	return nil
}

// Get returns a reader over a snapshot of the object.
func (s *MemoryObjectStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", key, object.ErrObjectNotFound)
	}

	// Objects are replaced, never mutated in place, so sharing the slice is safe
	return io.NopCloser(bytes.NewReader(e.data)), nil
}

// Delete removes key. Missing keys are not an error.
func (s *MemoryObjectStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, key)
	return nil
}

// Copy duplicates srcKey to dstKey.
func (s *MemoryObjectStore) Copy(ctx context.Context, srcKey, dstKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dstKey == "" {
		return object.ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.objects[srcKey]
	if !ok {
		return fmt.Errorf("object %s: %w", srcKey, object.ErrObjectNotFound)
	}

	s.objects[dstKey] = &entry{data: src.data, contentType: src.contentType, modified: time.Now()}
	return nil
}

// Presign returns a signed URL for key.
func (s *MemoryObjectStore) Presign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.RLock()
	_, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("object %s: %w", key, object.ErrObjectNotFound)
	}

	if s.signer == nil {
		return fmt.Sprintf("memory://%s?expires=%d", key, time.Now().Add(ttl).Unix()), nil
	}
	return s.signer.Sign(key, ttl)
}

// Exists reports whether key is stored.
func (s *MemoryObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.objects[key]
	return ok, nil
}

// ListKeys returns all objects whose key starts with prefix, sorted by key.
func (s *MemoryObjectStore) ListKeys(ctx context.Context, prefix string) ([]object.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]object.ObjectInfo, 0, len(s.objects))
	for key, e := range s.objects {
		if strings.HasPrefix(key, prefix) {
			infos = append(infos, object.ObjectInfo{
				Key:          key,
				Size:         int64(len(e.data)),
				LastModified: e.modified,
			})
		}
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// DeleteBatch deletes every key. The memory backend cannot fail per key.
func (s *MemoryObjectStore) DeleteBatch(ctx context.Context, keys []string) (map[string]error, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.objects, key)
	}
	return map[string]error{}, nil
}

// Close is a no-op.
func (s *MemoryObjectStore) Close() error {
	return nil
}

// Stat returns size, modification time and content type of key.
func (s *MemoryObjectStore) Stat(ctx context.Context, key string) (*object.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", key, object.ErrObjectNotFound)
	}
	return &object.ObjectInfo{
		Key:          key,
		Size:         int64(len(e.data)),
		LastModified: e.modified,
		ContentType:  e.contentType,
	}, nil
}

var (
	_ object.Store              = (*MemoryObjectStore)(nil)
	_ object.GarbageCollectable = (*MemoryObjectStore)(nil)
	_ object.Statter            = (*MemoryObjectStore)(nil)
)
