package models

import (
	"fmt"
	"time"
)

// ContentRecord is the cached unit: one scraped reel, keyed by its
// derived identity. Structured fields live in the metadata store; the
// video bytes live in the blob store under BlobReference.
type ContentRecord struct {
	Identity        string    `db:"identity" json:"identity"`
	SourceURL       string    `db:"source_url" json:"source_url"`
	Caption         string    `db:"caption" json:"caption,omitempty"`
	Hashtags        []string  `db:"hashtags" json:"hashtags"`
	LocationLabel   string    `db:"location_label" json:"location_label,omitempty"`
	EngagementCount int64     `db:"engagement_count" json:"engagement_count"`
	PublishedAt     string    `db:"published_at" json:"published_at,omitempty"`
	AuthorHandle    string    `db:"author_handle" json:"author_handle,omitempty"`
	VideoRemoteURL  string    `db:"video_remote_url" json:"video_remote_url,omitempty"`
	DisplayImageURL string    `db:"display_image_url" json:"display_image_url,omitempty"`
	BlobReference   *string   `db:"blob_reference" json:"blob_reference"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Validate checks the record shape at the store boundary
func (r *ContentRecord) Validate() error {
	if r.Identity == "" {
		return fmt.Errorf("content record: identity is required")
	}
	if r.SourceURL == "" {
		return fmt.Errorf("content record: source_url is required")
	}
	if r.EngagementCount < 0 {
		return fmt.Errorf("content record: engagement_count must be non-negative, got %d", r.EngagementCount)
	}
	if r.BlobReference != nil && *r.BlobReference == "" {
		return fmt.Errorf("content record: blob_reference must be null or non-empty")
	}
	return nil
}

// HasBlob reports whether the video payload was durably stored
func (r *ContentRecord) HasBlob() bool {
	return r.BlobReference != nil && *r.BlobReference != ""
}

// Clone returns a deep copy so callers can diff refreshed records
// against what was previously stored.
func (r *ContentRecord) Clone() *ContentRecord {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Hashtags != nil {
		cp.Hashtags = append([]string(nil), r.Hashtags...)
	}
	if r.BlobReference != nil {
		ref := *r.BlobReference
		cp.BlobReference = &ref
	}
	return &cp
}
