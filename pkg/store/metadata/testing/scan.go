package testing

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodrive/pkg/store/metadata"
)

// RunScanTests covers ScanFiles filtering.
func (suite *StoreTestSuite) RunScanTests(t *testing.T) {
	t.Run("ByOwner", suite.testScanByOwner)
	t.Run("AllOwners", suite.testScanAllOwners)
	t.Run("ByObjectKey", suite.testScanByObjectKey)
	t.Run("ByKeyPrefix", suite.testScanByKeyPrefix)
	t.Run("ByDeleted", suite.testScanByDeleted)
	t.Run("DeletedBefore", suite.testScanDeletedBefore)
}

// seed stores alice's a.txt (active), docs/b.txt (trashed an hour after
// baseTime) and bob's a.txt (active).
func (suite *StoreTestSuite) seed(t *testing.T, store metadata.Store) {
	t.Helper()

	mustPutFile(t, store, newRecord("alice", "a.txt", 1))

	trashed := newRecord("alice", "docs/b.txt", 2)
	deletedAt := baseTime.Add(time.Hour)
	trashed.IsDeleted = true
	trashed.DeletedAt = &deletedAt
	mustPutFile(t, store, trashed)

	mustPutFile(t, store, newRecord("bob", "a.txt", 3))
}

func keys(records []*metadata.FileRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.OwnerID+":"+r.ObjectKey)
	}
	sort.Strings(out)
	return out
}

func (suite *StoreTestSuite) testScanByOwner(t *testing.T) {
	store := suite.NewStore()
	suite.seed(t, store)

	records, err := store.ScanFiles(testContext(), metadata.FileFilter{OwnerID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice:a.txt", "alice:docs/b.txt"}, keys(records))
}

func (suite *StoreTestSuite) testScanAllOwners(t *testing.T) {
	store := suite.NewStore()
	suite.seed(t, store)

	records, err := store.ScanFiles(testContext(), metadata.FileFilter{})
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func (suite *StoreTestSuite) testScanByObjectKey(t *testing.T) {
	store := suite.NewStore()
	suite.seed(t, store)

	records, err := store.ScanFiles(testContext(), metadata.FileFilter{ObjectKey: "a.txt"})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice:a.txt", "bob:a.txt"}, keys(records))
}

func (suite *StoreTestSuite) testScanByKeyPrefix(t *testing.T) {
	store := suite.NewStore()
	suite.seed(t, store)

	records, err := store.ScanFiles(testContext(), metadata.FileFilter{OwnerID: "alice", KeyPrefix: "docs/"})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice:docs/b.txt"}, keys(records))
}

func (suite *StoreTestSuite) testScanByDeleted(t *testing.T) {
	store := suite.NewStore()
	suite.seed(t, store)

	active, err := store.ScanFiles(testContext(), metadata.FileFilter{OwnerID: "alice", Deleted: metadata.Bool(false)})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice:a.txt"}, keys(active))

	trashed, err := store.ScanFiles(testContext(), metadata.FileFilter{Deleted: metadata.Bool(true)})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice:docs/b.txt"}, keys(trashed))
}

func (suite *StoreTestSuite) testScanDeletedBefore(t *testing.T) {
	store := suite.NewStore()
	suite.seed(t, store)

	none, err := store.ScanFiles(testContext(), metadata.FileFilter{DeletedBefore: baseTime.Add(time.Minute)})
	require.NoError(t, err)
	assert.Empty(t, none)

	old, err := store.ScanFiles(testContext(), metadata.FileFilter{DeletedBefore: baseTime.Add(2 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice:docs/b.txt"}, keys(old))
}
