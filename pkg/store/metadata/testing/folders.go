package testing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodrive/pkg/store/metadata"
)

// RunFolderTests covers folder records.
func (suite *StoreTestSuite) RunFolderTests(t *testing.T) {
	t.Run("PutGet", suite.testFolderPutGet)
	t.Run("GetFolder_NotFound", suite.testFolderNotFound)
	t.Run("Scan_ByParentPath", suite.testFolderScanByParent)
	t.Run("PutFolder_Invalid", suite.testFolderInvalid)
}

func newFolder(owner, name, parentPath string) *metadata.FolderRecord {
	return &metadata.FolderRecord{
		FolderID:   uuid.NewString(),
		OwnerID:    owner,
		Name:       name,
		ParentPath: parentPath,
		CreatedAt:  baseTime,
	}
}

func (suite *StoreTestSuite) testFolderPutGet(t *testing.T) {
	store := suite.NewStore()
	parentID := "parent-id"
	f := newFolder("alice", "reports", "docs")
	f.ParentFolderID = &parentID

	require.NoError(t, store.PutFolder(testContext(), f))

	got, err := store.GetFolder(testContext(), "alice", f.FolderID)
	require.NoError(t, err)
	assert.Equal(t, "reports", got.Name)
	assert.Equal(t, "docs/reports", got.Path())
	require.NotNil(t, got.ParentFolderID)
	assert.Equal(t, "parent-id", *got.ParentFolderID)
}

func (suite *StoreTestSuite) testFolderNotFound(t *testing.T) {
	store := suite.NewStore()

	_, err := store.GetFolder(testContext(), "alice", "nope")
	AssertErrorIs(t, metadata.ErrRecordNotFound, err)
}

func (suite *StoreTestSuite) testFolderScanByParent(t *testing.T) {
	store := suite.NewStore()
	require.NoError(t, store.PutFolder(testContext(), newFolder("alice", "docs", "")))
	require.NoError(t, store.PutFolder(testContext(), newFolder("alice", "reports", "docs")))
	require.NoError(t, store.PutFolder(testContext(), newFolder("alice", "drafts", "docs")))
	require.NoError(t, store.PutFolder(testContext(), newFolder("bob", "reports", "docs")))

	docs := "docs"
	folders, err := store.ScanFolders(testContext(), metadata.FolderFilter{OwnerID: "alice", ParentPath: &docs})
	require.NoError(t, err)
	assert.Len(t, folders, 2)

	root := ""
	folders, err = store.ScanFolders(testContext(), metadata.FolderFilter{OwnerID: "alice", ParentPath: &root})
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, "docs", folders[0].Name)

	folders, err = store.ScanFolders(testContext(), metadata.FolderFilter{OwnerID: "alice", ParentPath: &docs, Name: "drafts"})
	require.NoError(t, err)
	assert.Len(t, folders, 1)
}

func (suite *StoreTestSuite) testFolderInvalid(t *testing.T) {
	store := suite.NewStore()

	err := store.PutFolder(testContext(), &metadata.FolderRecord{OwnerID: "alice", FolderID: "x"})
	AssertErrorIs(t, metadata.ErrInvalidRecord, err)
}
