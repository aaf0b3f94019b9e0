package testing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodrive/pkg/store/metadata"
)

// RunFileTests covers single-record file operations.
func (suite *StoreTestSuite) RunFileTests(t *testing.T) {
	t.Run("GetFile_NotFound", suite.testGetFileNotFound)
	t.Run("PutFile_RoundTrip", suite.testPutFileRoundTrip)
	t.Run("PutFile_Replace", suite.testPutFileReplace)
	t.Run("PutFile_Invalid", suite.testPutFileInvalid)
	t.Run("GetFile_ReturnsCopy", suite.testGetFileReturnsCopy)
	t.Run("UpdateFile_Rename", suite.testUpdateFileRename)
	t.Run("UpdateFile_TrashRestore", suite.testUpdateFileTrashRestore)
	t.Run("UpdateFile_NotFound", suite.testUpdateFileNotFound)
	t.Run("DeleteFile", suite.testDeleteFile)
	t.Run("OwnersAreIsolated", suite.testOwnersIsolated)
}

func (suite *StoreTestSuite) testGetFileNotFound(t *testing.T) {
	store := suite.NewStore()

	_, err := store.GetFile(testContext(), "alice", "missing")
	AssertErrorIs(t, metadata.ErrRecordNotFound, err)
}

func (suite *StoreTestSuite) testPutFileRoundTrip(t *testing.T) {
	store := suite.NewStore()
	r := newRecord("alice", "docs/report.pdf", 42)
	r.ContentType = "application/pdf"
	r.FolderID = "docs"
	r.CachedURL = "http://cached"

	mustPutFile(t, store, r)

	got := mustGetFile(t, store, "alice", r.FileID)
	assert.Equal(t, r.ObjectKey, got.ObjectKey)
	assert.Equal(t, "report.pdf", got.DisplayName)
	assert.EqualValues(t, 42, got.Size)
	assert.Equal(t, "application/pdf", got.ContentType)
	assert.Equal(t, "docs", got.FolderID)
	assert.Equal(t, "http://cached", got.CachedURL)
	assert.False(t, got.IsDeleted)
	assert.Nil(t, got.DeletedAt)
	assert.True(t, baseTime.Equal(got.CreatedAt))
}

func (suite *StoreTestSuite) testPutFileReplace(t *testing.T) {
	store := suite.NewStore()
	r := newRecord("alice", "a.txt", 1)
	mustPutFile(t, store, r)

	r.Size = 99
	mustPutFile(t, store, r)

	assert.EqualValues(t, 99, mustGetFile(t, store, "alice", r.FileID).Size)
}

func (suite *StoreTestSuite) testPutFileInvalid(t *testing.T) {
	store := suite.NewStore()

	err := store.PutFile(testContext(), &metadata.FileRecord{OwnerID: "alice"})
	AssertErrorIs(t, metadata.ErrInvalidRecord, err)
}

func (suite *StoreTestSuite) testGetFileReturnsCopy(t *testing.T) {
	store := suite.NewStore()
	r := newRecord("alice", "a.txt", 1)
	mustPutFile(t, store, r)

	// Mutating the caller's copies must not leak into the store
	r.ObjectKey = "mutated"
	got := mustGetFile(t, store, "alice", r.FileID)
	got.ObjectKey = "mutated-again"

	assert.Equal(t, "a.txt", mustGetFile(t, store, "alice", r.FileID).ObjectKey)
}

func (suite *StoreTestSuite) testUpdateFileRename(t *testing.T) {
	store := suite.NewStore()
	r := newRecord("alice", "docs/a.txt", 1)
	mustPutFile(t, store, r)

	later := baseTime.Add(time.Hour)
	updated, err := store.UpdateFile(testContext(), "alice", r.FileID, metadata.FileUpdate{
		ObjectKey:   metadata.String("docs/b.txt"),
		DisplayName: metadata.String("b.txt"),
		UpdatedAt:   later,
	})
	require.NoError(t, err)
	assert.Equal(t, "docs/b.txt", updated.ObjectKey)
	assert.Equal(t, "b.txt", updated.DisplayName)
	assert.True(t, later.Equal(updated.UpdatedAt))

	got := mustGetFile(t, store, "alice", r.FileID)
	assert.Equal(t, "docs/b.txt", got.ObjectKey)
	assert.True(t, baseTime.Equal(got.CreatedAt), "CreatedAt must not change")
}

func (suite *StoreTestSuite) testUpdateFileTrashRestore(t *testing.T) {
	store := suite.NewStore()
	r := newRecord("alice", "a.txt", 1)
	mustPutFile(t, store, r)

	deletedAt := baseTime.Add(time.Minute)
	trashed, err := store.UpdateFile(testContext(), "alice", r.FileID, metadata.FileUpdate{
		IsDeleted: metadata.Bool(true),
		DeletedAt: &deletedAt,
		UpdatedAt: deletedAt,
	})
	require.NoError(t, err)
	assert.True(t, trashed.IsDeleted)
	require.NotNil(t, trashed.DeletedAt)
	assert.True(t, deletedAt.Equal(*trashed.DeletedAt))

	restored, err := store.UpdateFile(testContext(), "alice", r.FileID, metadata.FileUpdate{
		IsDeleted: metadata.Bool(false),
	})
	require.NoError(t, err)
	assert.False(t, restored.IsDeleted)
	assert.Nil(t, restored.DeletedAt)
	assert.Nil(t, mustGetFile(t, store, "alice", r.FileID).DeletedAt)
}

func (suite *StoreTestSuite) testUpdateFileNotFound(t *testing.T) {
	store := suite.NewStore()

	_, err := store.UpdateFile(testContext(), "alice", "ghost", metadata.FileUpdate{
		CachedURL: metadata.String("x"),
	})
	AssertErrorIs(t, metadata.ErrRecordNotFound, err)
}

func (suite *StoreTestSuite) testDeleteFile(t *testing.T) {
	store := suite.NewStore()
	r := newRecord("alice", "a.txt", 1)
	mustPutFile(t, store, r)

	require.NoError(t, store.DeleteFile(testContext(), "alice", r.FileID))

	_, err := store.GetFile(testContext(), "alice", r.FileID)
	AssertErrorIs(t, metadata.ErrRecordNotFound, err)

	err = store.DeleteFile(testContext(), "alice", r.FileID)
	AssertErrorIs(t, metadata.ErrRecordNotFound, err)
}

func (suite *StoreTestSuite) testOwnersIsolated(t *testing.T) {
	store := suite.NewStore()
	r := newRecord("alice", "a.txt", 1)
	mustPutFile(t, store, r)

	_, err := store.GetFile(testContext(), "bob", r.FileID)
	AssertErrorIs(t, metadata.ErrRecordNotFound, err)
}
