// Package testing provides a reusable conformance suite for metadata.Store
// implementations.
package testing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodrive/pkg/store/metadata"
)

// StoreTestSuite tests the metadata.Store contract.
//
// Usage:
//
//	func TestMyMetadataStore(t *testing.T) {
//	    suite := &testing.StoreTestSuite{
//	        NewStore: func() metadata.Store {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh, empty store for each test.
	NewStore func() metadata.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("Files", suite.RunFileTests)
	t.Run("Scan", suite.RunScanTests)
	t.Run("Folders", suite.RunFolderTests)
}

func testContext() context.Context {
	return context.Background()
}

// AssertErrorIs fails the test unless err wraps target.
func AssertErrorIs(t *testing.T, target, err error) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, errors.Is(err, target), "expected %v, got %v", target, err)
}

// baseTime is truncated so backends that drop sub-microsecond precision
// round-trip it unchanged.
var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newRecord(owner, key string, size int64) *metadata.FileRecord {
	return metadata.NewFileRecord(owner, uuid.NewString(), key, size, "", "", baseTime)
}

func mustPutFile(t *testing.T, store metadata.Store, r *metadata.FileRecord) {
	t.Helper()
	require.NoError(t, store.PutFile(testContext(), r))
}

func mustGetFile(t *testing.T, store metadata.Store, owner, id string) *metadata.FileRecord {
	t.Helper()
	r, err := store.GetFile(testContext(), owner, id)
	require.NoError(t, err)
	return r
}
