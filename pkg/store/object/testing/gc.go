package testing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodrive/pkg/store/object"
)

// RunGCTests covers the GarbageCollectable extension.
func (suite *StoreTestSuite) RunGCTests(t *testing.T) {
	t.Run("ListKeys_Prefix", suite.testListKeysPrefix)
	t.Run("DeleteBatch_Empty", suite.testDeleteBatchEmpty)
	t.Run("DeleteBatch_Multiple", suite.testDeleteBatchMultiple)
}

func (suite *StoreTestSuite) gcStore(t *testing.T) (object.Store, object.GarbageCollectable) {
	store := suite.NewStore()
	gc, ok := store.(object.GarbageCollectable)
	if !ok {
		t.Skip("Store does not implement GarbageCollectable")
	}
	return store, gc
}

func (suite *StoreTestSuite) testListKeysPrefix(t *testing.T) {
	store, gc := suite.gcStore(t)

	base := generateTestKey("")
	mustPut(t, store, base+"a.txt", []byte("a"))
	mustPut(t, store, base+"dir/b.txt", []byte("bb"))
	mustPut(t, store, generateTestKey("other.txt"), []byte("c"))

	infos, err := gc.ListKeys(testContext(), base)
	require.NoError(t, err)
	require.Len(t, infos, 2)

	sizes := make(map[string]int64)
	for _, info := range infos {
		assert.True(t, strings.HasPrefix(info.Key, base))
		sizes[info.Key] = info.Size
	}
	assert.EqualValues(t, 1, sizes[base+"a.txt"])
	assert.EqualValues(t, 2, sizes[base+"dir/b.txt"])
}

func (suite *StoreTestSuite) testDeleteBatchEmpty(t *testing.T) {
	_, gc := suite.gcStore(t)

	failures, err := gc.DeleteBatch(testContext(), nil)
	require.NoError(t, err)
	assert.Empty(t, failures)
}

func (suite *StoreTestSuite) testDeleteBatchMultiple(t *testing.T) {
	store, gc := suite.gcStore(t)

	keys := []string{generateTestKey("1"), generateTestKey("2"), generateTestKey("3")}
	for _, key := range keys {
		mustPut(t, store, key, []byte(key))
	}
	// A key that was never written is not a failure
	keys = append(keys, generateTestKey("missing"))

	failures, err := gc.DeleteBatch(testContext(), keys)
	require.NoError(t, err)
	assert.Empty(t, failures)

	for _, key := range keys {
		mustExist(t, store, key, false)
	}
}
