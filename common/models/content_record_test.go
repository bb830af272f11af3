package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentRecordValidate(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name    string
		record  ContentRecord
		wantErr string
	}{
		{
			name: "valid record",
			record: ContentRecord{
				Identity:  "DH4kP2yR7m1",
				SourceURL: "https://www.instagram.com/reel/DH4kP2yR7m1/",
				Hashtags:  []string{"travel"},
				CreatedAt: now,
				UpdatedAt: now,
			},
		},
		{
			name:    "missing identity",
			record:  ContentRecord{SourceURL: "https://www.instagram.com/reel/DH4kP2yR7m1/"},
			wantErr: "identity is required",
		},
		{
			name:    "missing source url",
			record:  ContentRecord{Identity: "DH4kP2yR7m1"},
			wantErr: "source_url is required",
		},
		{
			name: "negative engagement",
			record: ContentRecord{
				Identity:        "DH4kP2yR7m1",
				SourceURL:       "https://www.instagram.com/reel/DH4kP2yR7m1/",
				EngagementCount: -3,
			},
			wantErr: "engagement_count",
		},
		{
			name: "empty blob reference",
			record: ContentRecord{
				Identity:      "DH4kP2yR7m1",
				SourceURL:     "https://www.instagram.com/reel/DH4kP2yR7m1/",
				BlobReference: strPtr(""),
			},
			wantErr: "blob_reference",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestHasBlob(t *testing.T) {
	rec := ContentRecord{Identity: "DH4kP2yR7m1"}
	assert.False(t, rec.HasBlob())

	rec.BlobReference = strPtr("DH4kP2yR7m1.mp4")
	assert.True(t, rec.HasBlob())
}

func TestCloneIsDeep(t *testing.T) {
	rec := &ContentRecord{
		Identity:      "DH4kP2yR7m1",
		SourceURL:     "https://www.instagram.com/reel/DH4kP2yR7m1/",
		Hashtags:      []string{"travel", "bali"},
		BlobReference: strPtr("DH4kP2yR7m1.mp4"),
	}

	cp := rec.Clone()
	cp.Hashtags[0] = "changed"
	*cp.BlobReference = "changed.mp4"

	assert.Equal(t, "travel", rec.Hashtags[0])
	assert.Equal(t, "DH4kP2yR7m1.mp4", *rec.BlobReference)
}

func TestRecordFromScrape(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	res := &ScrapeResult{
		Caption:         "Three days in Lisbon",
		Hashtags:        []string{"lisbon", "portugal"},
		LocationName:    "Lisbon, Portugal",
		LikesCount:      4211,
		Timestamp:       "2025-03-01T12:00:00.000Z",
		OwnerUsername:   "wander.often",
		VideoURL:        "https://cdn.example.com/v/abc.mp4",
		DisplayImageURL: "https://cdn.example.com/i/abc.jpg",
	}

	rec := RecordFromScrape("DH4kP2yR7m1", "https://www.instagram.com/reel/DH4kP2yR7m1/", res, now)

	require.NoError(t, rec.Validate())
	assert.Equal(t, "DH4kP2yR7m1", rec.Identity)
	assert.Equal(t, "https://www.instagram.com/reel/DH4kP2yR7m1/", rec.SourceURL)
	assert.Equal(t, int64(4211), rec.EngagementCount)
	assert.Equal(t, "wander.often", rec.AuthorHandle)
	assert.Nil(t, rec.BlobReference)
	assert.False(t, rec.HasBlob())
	assert.Equal(t, now, rec.CreatedAt)
	assert.Equal(t, now, rec.UpdatedAt)
}

func TestRecordFromScrapeNilHashtags(t *testing.T) {
	rec := RecordFromScrape("DH4kP2yR7m1", "https://www.instagram.com/reel/DH4kP2yR7m1/", &ScrapeResult{}, time.Now())
	require.NotNil(t, rec.Hashtags)
	assert.Empty(t, rec.Hashtags)
}

func strPtr(s string) *string { return &s }
