package drive

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marmos91/dittodrive/pkg/store/object"
)

func TestError_IsMatchesKind(t *testing.T) {
	cause := fmt.Errorf("object a: %w", object.ErrObjectNotFound)
	err := objectErr("rename", "copy_object", cause)

	assert.ErrorIs(t, err, ErrObjectStore)
	assert.ErrorIs(t, err, object.ErrObjectNotFound)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "rename: copy_object failed (object_store): object a: object not found", err.Error())

	wrapped := fmt.Errorf("handler: %w", err)
	assert.Equal(t, KindObjectStore, KindOf(wrapped))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestError_DeadlineBecomesTimeout(t *testing.T) {
	err := metaErr("purge", "delete_record", fmt.Errorf("query: %w", context.DeadlineExceeded))
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrMetadata)
}

func TestError_WithoutStep(t *testing.T) {
	err := newError("trash", "", KindNotFound, nil)
	assert.Equal(t, "trash: not_found", err.Error())
}

func TestStorageKey(t *testing.T) {
	key := StorageKey("alice", "docs/a.txt")
	assert.Equal(t, "alice/docs/a.txt", key)

	ownerID, logical, ok := OwnerFromStorageKey(key)
	assert.True(t, ok)
	assert.Equal(t, "alice", ownerID)
	assert.Equal(t, "docs/a.txt", logical)

	_, _, ok = OwnerFromStorageKey("no-separator")
	assert.False(t, ok)
}
