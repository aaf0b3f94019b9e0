package memory

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodrive/pkg/store/object"
	objecttesting "github.com/marmos91/dittodrive/pkg/store/object/testing"
)

func TestMemoryObjectStore(t *testing.T) {
	suite := &objecttesting.StoreTestSuite{
		NewStore: func() object.Store {
			store, err := NewMemoryObjectStore(context.Background(), nil)
			require.NoError(t, err)
			return store
		},
	}
	suite.Run(t)
}

func TestMemoryObjectStore_PresignWithSigner(t *testing.T) {
	ctx := context.Background()
	signer, err := object.NewURLSigner("test-secret", "http://localhost:8080")
	require.NoError(t, err)

	store, err := NewMemoryObjectStore(ctx, signer)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "alice/a.txt", []byte("a"), ""))

	url, err := store.Presign(ctx, "alice/a.txt", time.Minute)
	require.NoError(t, err)

	key, err := signer.Verify(strings.TrimPrefix(url, "http://localhost:8080"+object.BlobPath))
	require.NoError(t, err)
	assert.Equal(t, "alice/a.txt", key)

	_, err = store.Presign(ctx, "alice/missing.txt", time.Minute)
	assert.ErrorIs(t, err, object.ErrObjectNotFound)
}

func TestMemoryObjectStore_DefaultContentType(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemoryObjectStore(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "k", []byte("x"), ""))
	info, err := store.Stat(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, object.DefaultContentType, info.ContentType)
}

func TestMemoryObjectStore_PutCopiesBuffer(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemoryObjectStore(ctx, nil)
	require.NoError(t, err)

	buf := []byte("abc")
	require.NoError(t, store.Put(ctx, "k", buf, ""))
	buf[0] = 'z'

	r, err := store.Get(ctx, "k")
	require.NoError(t, err)
	got := make([]byte, 3)
	_, err = r.Read(got)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}
