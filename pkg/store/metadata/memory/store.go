// Package memory implements an in-memory metadata store.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/marmos91/dittodrive/pkg/store/metadata"
)

// MemoryMetadataStore implements metadata.Store with nested maps keyed by
// owner, then id. Records are copied on the way in and out so callers can
// never mutate stored state.
type MemoryMetadataStore struct {
	mu      sync.RWMutex
	files   map[string]map[string]*metadata.FileRecord
	folders map[string]map[string]*metadata.FolderRecord
}

// NewMemoryMetadataStore creates an empty store.
func NewMemoryMetadataStore() *MemoryMetadataStore {
	return &MemoryMetadataStore{
		files:   make(map[string]map[string]*metadata.FileRecord),
		folders: make(map[string]map[string]*metadata.FolderRecord),
	}
}

func (s *MemoryMetadataStore) GetFile(ctx context.Context, ownerID, fileID string) (*metadata.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.files[ownerID][fileID]
	if !ok {
		return nil, fmt.Errorf("file %s/%s: %w", ownerID, fileID, metadata.ErrRecordNotFound)
	}
	return r.Clone(), nil
}

func (s *MemoryMetadataStore) PutFile(ctx context.Context, record *metadata.FileRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := metadata.ValidateFile(record); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owned, ok := s.files[record.OwnerID]
	if !ok {
		owned = make(map[string]*metadata.FileRecord)
		s.files[record.OwnerID] = owned
	}
	owned[record.FileID] = record.Clone()
	return nil
}

func (s *MemoryMetadataStore) UpdateFile(ctx context.Context, ownerID, fileID string, update metadata.FileUpdate) (*metadata.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.files[ownerID][fileID]
	if !ok {
		return nil, fmt.Errorf("file %s/%s: %w", ownerID, fileID, metadata.ErrRecordNotFound)
	}
	update.Apply(r)
	return r.Clone(), nil
}

func (s *MemoryMetadataStore) DeleteFile(ctx context.Context, ownerID, fileID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owned := s.files[ownerID]
	if _, ok := owned[fileID]; !ok {
		return fmt.Errorf("file %s/%s: %w", ownerID, fileID, metadata.ErrRecordNotFound)
	}
	delete(owned, fileID)
	if len(owned) == 0 {
		delete(s.files, ownerID)
	}
	return nil
}

func (s *MemoryMetadataStore) ScanFiles(ctx context.Context, filter metadata.FileFilter) ([]*metadata.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*metadata.FileRecord
	scan := func(owned map[string]*metadata.FileRecord) {
		for _, r := range owned {
			if filter.Match(r) {
				out = append(out, r.Clone())
			}
		}
	}

	if filter.OwnerID != "" {
		scan(s.files[filter.OwnerID])
	} else {
		for _, owned := range s.files {
			scan(owned)
		}
	}
	return out, nil
}

func (s *MemoryMetadataStore) PutFolder(ctx context.Context, folder *metadata.FolderRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := metadata.ValidateFolder(folder); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owned, ok := s.folders[folder.OwnerID]
	if !ok {
		owned = make(map[string]*metadata.FolderRecord)
		s.folders[folder.OwnerID] = owned
	}
	owned[folder.FolderID] = folder.Clone()
	return nil
}

func (s *MemoryMetadataStore) GetFolder(ctx context.Context, ownerID, folderID string) (*metadata.FolderRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.folders[ownerID][folderID]
	if !ok {
		return nil, fmt.Errorf("folder %s/%s: %w", ownerID, folderID, metadata.ErrRecordNotFound)
	}
	return f.Clone(), nil
}

func (s *MemoryMetadataStore) ScanFolders(ctx context.Context, filter metadata.FolderFilter) ([]*metadata.FolderRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*metadata.FolderRecord
	for owner, owned := range s.folders {
		if filter.OwnerID != "" && owner != filter.OwnerID {
			continue
		}
		for _, f := range owned {
			if filter.Match(f) {
				out = append(out, f.Clone())
			}
		}
	}
	return out, nil
}

// Close is a no-op.
func (s *MemoryMetadataStore) Close() error {
	return nil
}

var _ metadata.Store = (*MemoryMetadataStore)(nil)
