package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voyago/reeltrip/common/logger"
)

func newTestBlobStore(t *testing.T) *FSBlobStore {
	t.Helper()

	store, err := NewFSBlobStore(t.TempDir(), logger.New("error", "text"))
	require.NoError(t, err)
	return store
}

func TestFSPutExistsDelete(t *testing.T) {
	store := newTestBlobStore(t)
	ctx := context.Background()
	key := BlobKey("DH4kP2yR7m1")
	payload := []byte("not really mp4 bytes")

	ref, err := store.Put(ctx, key, bytes.NewReader(payload), int64(len(payload)), VideoContentType)
	require.NoError(t, err)
	assert.Equal(t, key, ref)

	exists, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	path, err := store.URL(ctx, key)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, content)

	require.NoError(t, store.Delete(ctx, key))

	exists, err = store.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	// Deleting a missing blob stays quiet.
	assert.NoError(t, store.Delete(ctx, key))
}

func TestFSPutOverwrites(t *testing.T) {
	store := newTestBlobStore(t)
	ctx := context.Background()
	key := BlobKey("DH4kP2yR7m1")

	_, err := store.Put(ctx, key, bytes.NewReader([]byte("first")), 5, VideoContentType)
	require.NoError(t, err)

	_, err = store.Put(ctx, key, bytes.NewReader([]byte("second")), 6, VideoContentType)
	require.NoError(t, err)

	path, err := store.URL(ctx, key)
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))
}

func TestFSRejectsUnsafeKeys(t *testing.T) {
	store := newTestBlobStore(t)
	ctx := context.Background()

	for _, key := range []string{"", "a/b.mp4", `a\b.mp4`, "..", "x..y.mp4"} {
		_, err := store.Put(ctx, key, bytes.NewReader(nil), 0, VideoContentType)
		assert.Error(t, err, "key %q", key)
	}
}
