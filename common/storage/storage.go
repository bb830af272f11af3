// Package storage provides the two persistence tiers of the reel
// cache: a metadata store for structured records and a blob store for
// video payloads. Callers depend on the interfaces; the concrete
// backend is chosen from configuration at startup.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/voyago/reeltrip/common/config"
	"github.com/voyago/reeltrip/common/db"
	"github.com/voyago/reeltrip/common/logger"
	"github.com/voyago/reeltrip/common/models"
)

// ErrNotFound is returned when no record or blob exists for the key.
var ErrNotFound = errors.New("storage: not found")

// ErrUnavailable marks connectivity or backend failures. Callers must
// not confuse it with ErrNotFound: a dead store is not a cache miss.
var ErrUnavailable = errors.New("storage: unavailable")

// ErrQuotaExceeded marks blob writes rejected for capacity reasons. It
// is surfaced so callers can persist the structured record anyway.
var ErrQuotaExceeded = errors.New("storage: quota exceeded")

// VideoContentType is the content type stored with every video blob.
const VideoContentType = "video/mp4"

// MetadataStore persists ContentRecords keyed by identity.
type MetadataStore interface {
	// Get returns the record for the identity, or ErrNotFound.
	Get(ctx context.Context, identity string) (*models.ContentRecord, error)

	// Upsert inserts the record or updates the existing row with the
	// same identity. created_at is set once on insert and never
	// changes afterwards; updated_at is refreshed on every call. The
	// returned record carries the stored timestamps.
	Upsert(ctx context.Context, rec *models.ContentRecord) (*models.ContentRecord, error)

	// List returns up to limit records, newest first.
	List(ctx context.Context, limit int) ([]*models.ContentRecord, error)

	// Delete removes the record, or returns ErrNotFound.
	Delete(ctx context.Context, identity string) error

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases resources owned by the store.
	Close() error
}

// BlobStore persists video payloads keyed by blob reference.
type BlobStore interface {
	// Put streams the payload into the store and returns the blob
	// reference to persist alongside the record.
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)

	// Exists reports whether a payload is stored under the key.
	Exists(ctx context.Context, key string) (bool, error)

	// URL returns a location callers can fetch the payload from.
	URL(ctx context.Context, key string) (string, error)

	// Delete removes the payload. Deleting a missing key is not an
	// error.
	Delete(ctx context.Context, key string) error
}

// BlobKey returns the blob store key for a reel identity.
func BlobKey(identity string) string {
	return identity + ".mp4"
}

// NewMetadataStore builds the configured metadata backend. The
// Postgres backend reuses the shared pool; the sqlite backend owns its
// own handle.
func NewMetadataStore(cfg *config.Config, database *db.DB, log *logger.Logger) (MetadataStore, error) {
	switch cfg.Storage.MetadataBackend {
	case "postgres":
		if database == nil {
			return nil, fmt.Errorf("postgres metadata backend requires a database pool")
		}
		return NewPostgresStore(database), nil
	case "sqlite":
		return NewSQLiteStore(cfg.Storage.SQLitePath, log)
	default:
		return nil, fmt.Errorf("unknown metadata backend: %s", cfg.Storage.MetadataBackend)
	}
}

// NewBlobStore builds the configured blob backend.
func NewBlobStore(cfg *config.Config, log *logger.Logger) (BlobStore, error) {
	switch cfg.Storage.BlobBackend {
	case "s3":
		return NewS3BlobStore(cfg.Storage, log)
	case "fs":
		return NewFSBlobStore(cfg.Storage.FSDir, log)
	default:
		return nil, fmt.Errorf("unknown blob backend: %s", cfg.Storage.BlobBackend)
	}
}
