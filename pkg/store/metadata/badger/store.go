// Package badger implements a persistent metadata store on BadgerDB.
package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/marmos91/dittodrive/pkg/store/metadata"
)

// BadgerMetadataStore implements metadata.Store using BadgerDB.
//
// Every method runs in a single BadgerDB transaction (db.View for reads,
// db.Update for writes), which gives per-record atomicity. UpdateFile is a
// read-modify-write inside one transaction; concurrent conflicting updates
// fail with badger.ErrConflict and are retried once.
type BadgerMetadataStore struct {
	db *badger.DB
}

// BadgerMetadataStoreConfig contains configuration for creating a BadgerDB
// metadata store.
type BadgerMetadataStoreConfig struct {
	// DBPath is the directory where BadgerDB will store its files
	DBPath string `mapstructure:"db_path"`

	// InMemory runs BadgerDB without touching disk (tests)
	InMemory bool `mapstructure:"in_memory"`

	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 64)
	BlockCacheSizeMB int64 `mapstructure:"block_cache_size_mb"`

	// IndexCacheSizeMB is BadgerDB's index cache size in MB (default: 32)
	IndexCacheSizeMB int64 `mapstructure:"index_cache_size_mb"`
}

// NewBadgerMetadataStore opens (or creates) a BadgerDB metadata store.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - config: Database path and cache sizing
//
// Returns:
//   - *BadgerMetadataStore: A new store instance ready for use
//   - error: Error if database initialization fails or context is cancelled
func NewBadgerMetadataStore(ctx context.Context, config BadgerMetadataStoreConfig) (*BadgerMetadataStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if config.DBPath == "" && !config.InMemory {
		return nil, fmt.Errorf("badger db_path is required")
	}

	opts := badger.DefaultOptions(config.DBPath)
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}

	// Records are small JSON documents: compression is not worth it
	opts = opts.WithLoggingLevel(badger.WARNING)
	opts = opts.WithCompression(options.None)

	blockCacheMB := config.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 64
	}
	indexCacheMB := config.IndexCacheSizeMB
	if indexCacheMB == 0 {
		indexCacheMB = 32
	}
	opts = opts.WithBlockCacheSize(blockCacheMB << 20)
	opts = opts.WithIndexCacheSize(indexCacheMB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	return &BadgerMetadataStore{db: db}, nil
}

// ============================================================================
// File Records
// ============================================================================

func (s *BadgerMetadataStore) GetFile(ctx context.Context, ownerID, fileID string) (*metadata.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var record *metadata.FileRecord
	err := s.db.View(func(txn *badger.Txn) error {
		r, err := getFile(txn, ownerID, fileID)
		record = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func getFile(txn *badger.Txn, ownerID, fileID string) (*metadata.FileRecord, error) {
	item, err := txn.Get(keyFile(ownerID, fileID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("file %s/%s: %w", ownerID, fileID, metadata.ErrRecordNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file record: %w", err)
	}

	var record *metadata.FileRecord
	err = item.Value(func(val []byte) error {
		r, err := decodeFile(val)
		record = r
		return err
	})
	return record, err
}

func setFile(txn *badger.Txn, record *metadata.FileRecord) error {
	data, err := encodeFile(record)
	if err != nil {
		return err
	}
	if err := txn.Set(keyFile(record.OwnerID, record.FileID), data); err != nil {
		return fmt.Errorf("failed to store file record: %w", err)
	}
	return nil
}

func (s *BadgerMetadataStore) PutFile(ctx context.Context, record *metadata.FileRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := metadata.ValidateFile(record); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return setFile(txn, record)
	})
}

func (s *BadgerMetadataStore) UpdateFile(ctx context.Context, ownerID, fileID string, update metadata.FileUpdate) (*metadata.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var updated *metadata.FileRecord
	apply := func(txn *badger.Txn) error {
		r, err := getFile(txn, ownerID, fileID)
		if err != nil {
			return err
		}
		update.Apply(r)
		updated = r
		return setFile(txn, r)
	}

	err := s.db.Update(apply)
	if errors.Is(err, badger.ErrConflict) {
		err = s.db.Update(apply)
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *BadgerMetadataStore) DeleteFile(ctx context.Context, ownerID, fileID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := keyFile(ownerID, fileID)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("file %s/%s: %w", ownerID, fileID, metadata.ErrRecordNotFound)
			}
			return fmt.Errorf("failed to get file record: %w", err)
		}
		if err := txn.Delete(key); err != nil {
			return fmt.Errorf("failed to delete file record: %w", err)
		}
		return nil
	})
}

func (s *BadgerMetadataStore) ScanFiles(ctx context.Context, filter metadata.FileFilter) ([]*metadata.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []*metadata.FileRecord
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(ctx, txn, keyFileScan(filter.OwnerID), func(val []byte) error {
			r, err := decodeFile(val)
			if err != nil {
				return err
			}
			if filter.Match(r) {
				out = append(out, r)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ============================================================================
// Folder Records
// ============================================================================

func (s *BadgerMetadataStore) PutFolder(ctx context.Context, folder *metadata.FolderRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := metadata.ValidateFolder(folder); err != nil {
		return err
	}

	data, err := encodeFolder(folder)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(keyFolder(folder.OwnerID, folder.FolderID), data); err != nil {
			return fmt.Errorf("failed to store folder record: %w", err)
		}
		return nil
	})
}

func (s *BadgerMetadataStore) GetFolder(ctx context.Context, ownerID, folderID string) (*metadata.FolderRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var folder *metadata.FolderRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyFolder(ownerID, folderID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("folder %s/%s: %w", ownerID, folderID, metadata.ErrRecordNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to get folder record: %w", err)
		}
		return item.Value(func(val []byte) error {
			f, err := decodeFolder(val)
			folder = f
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return folder, nil
}

func (s *BadgerMetadataStore) ScanFolders(ctx context.Context, filter metadata.FolderFilter) ([]*metadata.FolderRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []*metadata.FolderRecord
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(ctx, txn, keyFolderScan(filter.OwnerID), func(val []byte) error {
			f, err := decodeFolder(val)
			if err != nil {
				return err
			}
			if filter.Match(f) {
				out = append(out, f)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// scanPrefix calls fn with the value of every key under prefix, checking
// the context between items.
func scanPrefix(ctx context.Context, txn *badger.Txn, prefix []byte, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the BadgerDB database and releases all resources.
//
// After calling Close, the store must not be used.
func (s *BadgerMetadataStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
}

var _ metadata.Store = (*BadgerMetadataStore)(nil)
