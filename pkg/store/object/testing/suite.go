// Package testing provides a reusable conformance suite for object.Store
// implementations.
package testing

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodrive/pkg/store/object"
)

// StoreTestSuite is a test suite for object.Store implementations.
// It tests the interface contract, not implementation details, making it
// reusable across backends (memory, filesystem, S3).
//
// Usage:
//
//	func TestMyObjectStore(t *testing.T) {
//	    suite := &testing.StoreTestSuite{
//	        NewStore: func() object.Store {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates the store under test. Backends that share state across
	// calls (an S3 bucket) are fine: every test uses unique keys.
	NewStore func() object.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("BasicOperations", suite.RunBasicTests)
	t.Run("CopyAndPresign", suite.RunCopyTests)
	t.Run("GarbageCollection", suite.RunGCTests)
	t.Run("Context", suite.RunContextTests)
}

func testContext() context.Context {
	return context.Background()
}

// generateTestKey returns a key unique to this test run.
func generateTestKey(name string) string {
	return "suite-" + uuid.NewString()[:8] + "/" + name
}

// AssertErrorIs fails the test unless err wraps target.
func AssertErrorIs(t *testing.T, target, err error) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, errors.Is(err, target), "expected %v, got %v", target, err)
}

func mustPut(t *testing.T, store object.Store, key string, data []byte) {
	t.Helper()
	require.NoError(t, store.Put(testContext(), key, data, "text/plain"))
}

func mustGet(t *testing.T, store object.Store, key string) []byte {
	t.Helper()
	r, err := store.Get(testContext(), key)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return data
}

func mustExist(t *testing.T, store object.Store, key string, want bool) {
	t.Helper()
	ok, err := store.Exists(testContext(), key)
	require.NoError(t, err)
	require.Equalf(t, want, ok, "exists(%s)", key)
}
