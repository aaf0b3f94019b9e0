package testing

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodrive/pkg/store/object"
)

// RunBasicTests covers Put, Get, Exists and Delete.
func (suite *StoreTestSuite) RunBasicTests(t *testing.T) {
	t.Run("Get_NotFound", suite.testGetNotFound)
	t.Run("PutGet_RoundTrip", suite.testPutGet)
	t.Run("Put_Empty", suite.testPutEmpty)
	t.Run("Put_Overwrite", suite.testPutOverwrite)
	t.Run("Put_Large", suite.testPutLarge)
	t.Run("Exists", suite.testExists)
	t.Run("Delete_Existing", suite.testDeleteExisting)
	t.Run("Delete_Missing", suite.testDeleteMissing)
	t.Run("Stat", suite.testStat)
	t.Run("FileAndNestedKeysCoexist", suite.testFileAndNestedKeysCoexist)
}

// ============================================================================
// Put / Get
// ============================================================================

func (suite *StoreTestSuite) testGetNotFound(t *testing.T) {
	store := suite.NewStore()

	_, err := store.Get(testContext(), generateTestKey("missing.txt"))
	AssertErrorIs(t, object.ErrObjectNotFound, err)
}

func (suite *StoreTestSuite) testPutGet(t *testing.T) {
	store := suite.NewStore()
	key := generateTestKey("docs/hello.txt")

	mustPut(t, store, key, []byte("Hello, World!"))

	assert.Equal(t, []byte("Hello, World!"), mustGet(t, store, key))
}

func (suite *StoreTestSuite) testPutEmpty(t *testing.T) {
	store := suite.NewStore()
	key := generateTestKey("empty")

	mustPut(t, store, key, []byte{})

	assert.Empty(t, mustGet(t, store, key))
	mustExist(t, store, key, true)
}

func (suite *StoreTestSuite) testPutOverwrite(t *testing.T) {
	store := suite.NewStore()
	key := generateTestKey("overwrite.txt")

	mustPut(t, store, key, []byte("first"))
	mustPut(t, store, key, []byte("second"))

	assert.Equal(t, []byte("second"), mustGet(t, store, key))
}

func (suite *StoreTestSuite) testPutLarge(t *testing.T) {
	store := suite.NewStore()
	key := generateTestKey("large.bin")

	// 5MB
	data := bytes.Repeat([]byte{0xA5}, 5*1024*1024)
	mustPut(t, store, key, data)

	got := mustGet(t, store, key)
	require.Len(t, got, len(data))
	assert.True(t, bytes.Equal(data, got))
}

func (suite *StoreTestSuite) testExists(t *testing.T) {
	store := suite.NewStore()
	key := generateTestKey("exists.txt")

	mustExist(t, store, key, false)
	mustPut(t, store, key, []byte("x"))
	mustExist(t, store, key, true)
}

// ============================================================================
// Delete
// ============================================================================

func (suite *StoreTestSuite) testDeleteExisting(t *testing.T) {
	store := suite.NewStore()
	key := generateTestKey("a/b/delete.txt")

	mustPut(t, store, key, []byte("bye"))
	require.NoError(t, store.Delete(testContext(), key))

	mustExist(t, store, key, false)
	_, err := store.Get(testContext(), key)
	AssertErrorIs(t, object.ErrObjectNotFound, err)
}

func (suite *StoreTestSuite) testDeleteMissing(t *testing.T) {
	store := suite.NewStore()

	// Idempotent: deleting twice, or something never written, succeeds
	key := generateTestKey("never-written")
	require.NoError(t, store.Delete(testContext(), key))
	require.NoError(t, store.Delete(testContext(), key))
}

func (suite *StoreTestSuite) testStat(t *testing.T) {
	store := suite.NewStore()
	statter, ok := store.(object.Statter)
	if !ok {
		t.Skip("Store does not implement Statter")
	}

	key := generateTestKey("stat.txt")
	mustPut(t, store, key, []byte("12345"))

	info, err := statter.Stat(testContext(), key)
	require.NoError(t, err)
	assert.EqualValues(t, 5, info.Size)
	assert.NotEmpty(t, info.ContentType)
	assert.False(t, info.LastModified.IsZero())

	_, err = statter.Stat(testContext(), generateTestKey("nope"))
	AssertErrorIs(t, object.ErrObjectNotFound, err)
}

// ============================================================================
// Flat key space
// ============================================================================

// testFileAndNestedKeysCoexist checks that a key and a key nested below it
// are independent objects, whichever is written first.
func (suite *StoreTestSuite) testFileAndNestedKeysCoexist(t *testing.T) {
	store := suite.NewStore()
	ctx := testContext()
	base := generateTestKey("")

	// File first, then a key below it
	mustPut(t, store, base+"a", []byte("a"))
	mustPut(t, store, base+"a/b", []byte("a/b"))

	// Nested first, then the parent key
	mustPut(t, store, base+"c/d", []byte("c/d"))
	mustPut(t, store, base+"c", []byte("c"))

	// Copy onto the parent of the source key
	mustPut(t, store, base+"e/f", []byte("e/f"))
	require.NoError(t, store.Copy(ctx, base+"e/f", base+"e"))

	for _, key := range []string{"a", "a/b", "c", "c/d", "e/f"} {
		assert.Equalf(t, []byte(key), mustGet(t, store, base+key), "key %s", key)
	}
	assert.Equal(t, []byte("e/f"), mustGet(t, store, base+"e"))

	// Deleting one leaves the other
	require.NoError(t, store.Delete(ctx, base+"a"))
	mustExist(t, store, base+"a", false)
	assert.Equal(t, []byte("a/b"), mustGet(t, store, base+"a/b"))

	require.NoError(t, store.Delete(ctx, base+"c/d"))
	mustExist(t, store, base+"c/d", false)
	assert.Equal(t, []byte("c"), mustGet(t, store, base+"c"))
}
