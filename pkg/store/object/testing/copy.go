package testing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodrive/pkg/store/object"
)

// RunCopyTests covers Copy and Presign.
func (suite *StoreTestSuite) RunCopyTests(t *testing.T) {
	t.Run("Copy_Success", suite.testCopySuccess)
	t.Run("Copy_Overwrite", suite.testCopyOverwrite)
	t.Run("Copy_MissingSource", suite.testCopyMissingSource)
	t.Run("Presign_Success", suite.testPresignSuccess)
}

func (suite *StoreTestSuite) testCopySuccess(t *testing.T) {
	store := suite.NewStore()
	src := generateTestKey("src.txt")
	dst := generateTestKey("nested/dst.txt")

	mustPut(t, store, src, []byte("payload"))
	require.NoError(t, store.Copy(testContext(), src, dst))

	// Source stays; copy is not move
	assert.Equal(t, []byte("payload"), mustGet(t, store, src))
	assert.Equal(t, []byte("payload"), mustGet(t, store, dst))
}

func (suite *StoreTestSuite) testCopyOverwrite(t *testing.T) {
	store := suite.NewStore()
	src := generateTestKey("src.txt")
	dst := generateTestKey("dst.txt")

	mustPut(t, store, src, []byte("new"))
	mustPut(t, store, dst, []byte("old"))
	require.NoError(t, store.Copy(testContext(), src, dst))

	assert.Equal(t, []byte("new"), mustGet(t, store, dst))
}

func (suite *StoreTestSuite) testCopyMissingSource(t *testing.T) {
	store := suite.NewStore()

	err := store.Copy(testContext(), generateTestKey("ghost"), generateTestKey("dst"))
	AssertErrorIs(t, object.ErrObjectNotFound, err)
}

func (suite *StoreTestSuite) testPresignSuccess(t *testing.T) {
	store := suite.NewStore()
	key := generateTestKey("shared.pdf")
	mustPut(t, store, key, []byte("%PDF"))

	url, err := store.Presign(testContext(), key, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, url)
}

// RunContextTests checks that a cancelled context aborts every method with
// the context error unwrapped.
func (suite *StoreTestSuite) RunContextTests(t *testing.T) {
	store := suite.NewStore()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	key := generateTestKey("cancelled")
	checks := map[string]error{
		"Put":     store.Put(ctx, key, []byte("x"), ""),
		"Delete":  store.Delete(ctx, key),
		"Copy":    store.Copy(ctx, key, key+"-copy"),
		"Get":     second(store.Get(ctx, key)),
		"Presign": second(store.Presign(ctx, key, time.Minute)),
		"Exists":  second(store.Exists(ctx, key)),
	}

	for name, err := range checks {
		assert.Truef(t, errors.Is(err, context.Canceled), "%s: expected context.Canceled, got %v", name, err)
	}
}

func second[T any](_ T, err error) error {
	return err
}
