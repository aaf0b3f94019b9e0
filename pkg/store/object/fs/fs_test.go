package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodrive/pkg/store/object"
	objecttesting "github.com/marmos91/dittodrive/pkg/store/object/testing"
)

func newTestSigner(t *testing.T) *object.URLSigner {
	t.Helper()
	signer, err := object.NewURLSigner("test-secret", "http://localhost:8080")
	require.NoError(t, err)
	return signer
}

func TestFSObjectStore(t *testing.T) {
	suite := &objecttesting.StoreTestSuite{
		NewStore: func() object.Store {
			store, err := NewFSObjectStore(context.Background(), t.TempDir(), newTestSigner(t))
			require.NoError(t, err)
			return store
		},
	}
	suite.Run(t)
}

func TestFSObjectStore_RejectsTraversal(t *testing.T) {
	ctx := context.Background()
	store, err := NewFSObjectStore(ctx, t.TempDir(), nil)
	require.NoError(t, err)

	for _, key := range []string{"../escape.txt", "a/../../escape.txt", "", "/"} {
		err := store.Put(ctx, key, []byte("x"), "")
		assert.ErrorIsf(t, err, object.ErrInvalidKey, "key %q", key)
	}
}

func TestFSObjectStore_DeletePrunesEmptyDirs(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	store, err := NewFSObjectStore(ctx, base, nil)
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "alice/docs/deep/a.txt", []byte("a"), ""))
	require.NoError(t, store.Put(ctx, "alice/keep.txt", []byte("k"), ""))
	require.NoError(t, store.Delete(ctx, "alice/docs/deep/a.txt"))

	_, err = os.Stat(filepath.Join(base, "alice.dir", "docs.dir"))
	assert.True(t, os.IsNotExist(err))

	_, err = os.Stat(filepath.Join(base, "alice.dir", "keep.txt.obj"))
	assert.NoError(t, err)
}

func TestFSObjectStore_Layout(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	store, err := NewFSObjectStore(ctx, base, nil)
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "alice/a", []byte("file"), ""))
	require.NoError(t, store.Put(ctx, "alice/a/b", []byte("nested"), ""))
	require.NoError(t, store.Put(ctx, "alice/x.obj/y.dir", []byte("odd"), ""))

	for _, rel := range []string{"alice.dir/a.obj", "alice.dir/a.dir/b.obj", "alice.dir/x.obj.dir/y.dir.obj"} {
		_, err := os.Stat(filepath.Join(base, filepath.FromSlash(rel)))
		assert.NoErrorf(t, err, "expected %s on disk", rel)
	}

	// Stray files and in-flight temp files are not objects
	require.NoError(t, os.WriteFile(filepath.Join(base, "alice.dir", "stray"), []byte("?"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(base, "alice.dir", ".tmp-123.part"), []byte("?"), 0644))

	infos, err := store.ListKeys(ctx, "alice/")
	require.NoError(t, err)
	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		keys = append(keys, info.Key)
	}
	assert.ElementsMatch(t, []string{"alice/a", "alice/a/b", "alice/x.obj/y.dir"}, keys)
}

func TestFSObjectStore_PresignRequiresSigner(t *testing.T) {
	ctx := context.Background()
	store, err := NewFSObjectStore(ctx, t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "a.txt", []byte("a"), ""))

	_, err = store.Presign(ctx, "a.txt", time.Minute)
	assert.Error(t, err)
}

func TestFSObjectStore_StatContentType(t *testing.T) {
	ctx := context.Background()
	store, err := NewFSObjectStore(ctx, t.TempDir(), nil)
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "photo.png", []byte{0x89}, "image/png"))
	require.NoError(t, store.Put(ctx, "blob", []byte{0x00}, ""))

	info, err := store.Stat(ctx, "photo.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", info.ContentType)

	info, err = store.Stat(ctx, "blob")
	require.NoError(t, err)
	assert.Equal(t, object.DefaultContentType, info.ContentType)
}
