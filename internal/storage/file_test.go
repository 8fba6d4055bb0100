package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	// Missing key reads as nil, nil
	value, err := store.GetItem(ctx, "campaign:missing")
	require.NoError(t, err)
	assert.Nil(t, value)

	require.NoError(t, store.SetItem(ctx, "campaign:s1", []byte(`{"status":"paused"}`)))

	value, err = store.GetItem(ctx, "campaign:s1")
	require.NoError(t, err)
	assert.Equal(t, `{"status":"paused"}`, string(value))

	// Overwrite replaces prior value
	require.NoError(t, store.SetItem(ctx, "campaign:s1", []byte(`{"status":"completed"}`)))
	value, err = store.GetItem(ctx, "campaign:s1")
	require.NoError(t, err)
	assert.Equal(t, `{"status":"completed"}`, string(value))
}

func TestFileStoreRemove(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.SetItem(ctx, "k", []byte("v")))
	require.NoError(t, store.RemoveItem(ctx, "k"))

	value, err := store.GetItem(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, value)

	// Removing a missing key is not an error
	require.NoError(t, store.RemoveItem(ctx, "k"))
}

func TestFileStoreEmptyKey(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.GetItem(ctx, "")
	assert.Error(t, err)
	assert.Error(t, store.SetItem(ctx, "", nil))
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, store.SetItem(ctx, "k", []byte("value")))
	}

	matches, err := filepath.Glob(filepath.Join(dir, ".write-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestFileStoreNamespacedKeys(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	// Keys with separator characters must not collide or escape the directory
	require.NoError(t, store.SetItem(ctx, "campaign:a/b", []byte("one")))
	require.NoError(t, store.SetItem(ctx, "campaign:a:b", []byte("two")))

	v1, err := store.GetItem(ctx, "campaign:a/b")
	require.NoError(t, err)
	v2, err := store.GetItem(ctx, "campaign:a:b")
	require.NoError(t, err)
	assert.Equal(t, "one", string(v1))
	assert.Equal(t, "two", string(v2))
}

func TestNewFileStoreCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")
	_, err := NewFileStore(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
