package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voyago/reeltrip/common/logger"
	"github.com/voyago/reeltrip/common/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "reeltrip.db"), logger.New("error", "text"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testRecord(identity string) *models.ContentRecord {
	return &models.ContentRecord{
		Identity:        identity,
		SourceURL:       "https://www.instagram.com/reel/" + identity + "/",
		Caption:         "Three days in Lisbon",
		Hashtags:        []string{"lisbon", "portugal"},
		LocationLabel:   "Lisbon, Portugal",
		EngagementCount: 4211,
		PublishedAt:     "2025-03-01T12:00:00.000Z",
		AuthorHandle:    "wander.often",
		VideoRemoteURL:  "https://cdn.example.com/v/abc.mp4",
		DisplayImageURL: "https://cdn.example.com/i/abc.jpg",
	}
}

func TestSQLiteGetMiss(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteUpsertThenGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	stored, err := store.Upsert(ctx, testRecord("DH4kP2yR7m1"))
	require.NoError(t, err)
	assert.False(t, stored.CreatedAt.IsZero())
	assert.False(t, stored.UpdatedAt.IsZero())

	got, err := store.Get(ctx, "DH4kP2yR7m1")
	require.NoError(t, err)
	assert.Equal(t, "Three days in Lisbon", got.Caption)
	assert.Equal(t, []string{"lisbon", "portugal"}, got.Hashtags)
	assert.Equal(t, int64(4211), got.EngagementCount)
	assert.Equal(t, "wander.often", got.AuthorHandle)
	assert.Nil(t, got.BlobReference)
}

func TestSQLiteUpsertPreservesCreatedAt(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Upsert(ctx, testRecord("DH4kP2yR7m1"))
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	updated := testRecord("DH4kP2yR7m1")
	updated.Caption = "Three days in Lisbon, updated"
	updated.EngagementCount = 5000
	ref := BlobKey("DH4kP2yR7m1")
	updated.BlobReference = &ref

	second, err := store.Upsert(ctx, updated)
	require.NoError(t, err)

	assert.WithinDuration(t, first.CreatedAt, second.CreatedAt, time.Millisecond)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt), "updated_at should move forward")
	assert.Equal(t, "Three days in Lisbon, updated", second.Caption)
	assert.Equal(t, int64(5000), second.EngagementCount)
	require.NotNil(t, second.BlobReference)
	assert.Equal(t, "DH4kP2yR7m1.mp4", *second.BlobReference)
}

func TestSQLiteUpsertRejectsInvalid(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Upsert(context.Background(), &models.ContentRecord{SourceURL: "https://www.instagram.com/reel/x/"})
	require.Error(t, err)
}

func TestSQLiteListNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, identity := range []string{"aaa", "bbb", "ccc"} {
		_, err := store.Upsert(ctx, testRecord(identity))
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}

	records, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "ccc", records[0].Identity)
	assert.Equal(t, "bbb", records[1].Identity)
}

func TestSQLiteClosedStoreIsUnavailableNotMissing(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "reeltrip.db"), logger.New("error", "text"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.Get(context.Background(), "DH4kP2yR7m1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestSQLiteDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Upsert(ctx, testRecord("DH4kP2yR7m1"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "DH4kP2yR7m1"))

	_, err = store.Get(ctx, "DH4kP2yR7m1")
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.Delete(ctx, "DH4kP2yR7m1")
	assert.ErrorIs(t, err, ErrNotFound)
}
