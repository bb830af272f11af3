package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/voyago/reeltrip/common/logger"
	"github.com/voyago/reeltrip/common/models"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore implements MetadataStore on an embedded database. It is
// the default backend for single-node and development deployments.
type SQLiteStore struct {
	db  *sql.DB
	log *logger.Logger
}

// NewSQLiteStore opens (creating if needed) the database at path
func NewSQLiteStore(path string, log *logger.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
		}
	}

	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// sqlite allows a single writer; serialize access through one
	// connection instead of surfacing SQLITE_BUSY to callers.
	database.SetMaxOpenConns(1)

	store := &SQLiteStore{db: database, log: log}
	if err := store.ensureSchema(); err != nil {
		database.Close()
		return nil, err
	}

	log.Info("sqlite metadata store ready", "path", path)
	return store, nil
}

func (s *SQLiteStore) ensureSchema() error {
	query := `
		CREATE TABLE IF NOT EXISTS reel_cache (
			identity TEXT PRIMARY KEY,
			source_url TEXT NOT NULL,
			caption TEXT NOT NULL DEFAULT '',
			hashtags TEXT NOT NULL DEFAULT '[]',
			location_label TEXT NOT NULL DEFAULT '',
			engagement_count INTEGER NOT NULL DEFAULT 0,
			published_at TEXT NOT NULL DEFAULT '',
			author_handle TEXT NOT NULL DEFAULT '',
			video_remote_url TEXT NOT NULL DEFAULT '',
			display_image_url TEXT NOT NULL DEFAULT '',
			blob_reference TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create reel_cache table: %w", err)
	}

	index := `CREATE INDEX IF NOT EXISTS idx_reel_cache_created_at ON reel_cache (created_at DESC)`
	if _, err := s.db.Exec(index); err != nil {
		return fmt.Errorf("failed to create reel_cache index: %w", err)
	}

	return nil
}

// Get retrieves a record by identity
func (s *SQLiteStore) Get(ctx context.Context, identity string) (*models.ContentRecord, error) {
	query := `
		SELECT identity, source_url, caption, hashtags, location_label, engagement_count,
			published_at, author_handle, video_remote_url, display_image_url, blob_reference, created_at, updated_at
		FROM reel_cache
		WHERE identity = ?
	`

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, identity))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reel %s: %w", identity, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reel %s: %w: %v", identity, ErrUnavailable, err)
	}

	return rec, nil
}

// Upsert inserts or updates a record. created_at is written once on
// insert and left untouched on conflict.
func (s *SQLiteStore) Upsert(ctx context.Context, rec *models.ContentRecord) (*models.ContentRecord, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	hashtags, err := json.Marshal(rec.Hashtags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode hashtags: %w", err)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO reel_cache (
			identity, source_url, caption, hashtags, location_label, engagement_count,
			published_at, author_handle, video_remote_url, display_image_url, blob_reference, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET
			source_url = excluded.source_url,
			caption = excluded.caption,
			hashtags = excluded.hashtags,
			location_label = excluded.location_label,
			engagement_count = excluded.engagement_count,
			published_at = excluded.published_at,
			author_handle = excluded.author_handle,
			video_remote_url = excluded.video_remote_url,
			display_image_url = excluded.display_image_url,
			blob_reference = excluded.blob_reference,
			updated_at = excluded.updated_at
	`

	_, err = s.db.ExecContext(
		ctx,
		query,
		rec.Identity,
		rec.SourceURL,
		rec.Caption,
		string(hashtags),
		rec.LocationLabel,
		rec.EngagementCount,
		rec.PublishedAt,
		rec.AuthorHandle,
		rec.VideoRemoteURL,
		rec.DisplayImageURL,
		rec.BlobReference,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert reel %s: %w: %v", rec.Identity, ErrUnavailable, err)
	}

	return s.Get(ctx, rec.Identity)
}

// List retrieves records ordered by creation time, newest first
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]*models.ContentRecord, error) {
	query := `
		SELECT identity, source_url, caption, hashtags, location_label, engagement_count,
			published_at, author_handle, video_remote_url, display_image_url, blob_reference, created_at, updated_at
		FROM reel_cache
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reels: %w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var records []*models.ContentRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reel: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reels: %w", err)
	}

	return records, nil
}

// Delete removes a record by identity
func (s *SQLiteStore) Delete(ctx context.Context, identity string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reel_cache WHERE identity = ?`, identity)
	if err != nil {
		return fmt.Errorf("failed to delete reel %s: %w: %v", identity, ErrUnavailable, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete reel %s: %w", identity, err)
	}
	if affected == 0 {
		return fmt.Errorf("reel %s: %w", identity, ErrNotFound)
	}
	return nil
}

// Ping verifies the database is reachable
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database handle
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.ContentRecord, error) {
	rec := &models.ContentRecord{}
	var hashtags string

	err := row.Scan(
		&rec.Identity,
		&rec.SourceURL,
		&rec.Caption,
		&hashtags,
		&rec.LocationLabel,
		&rec.EngagementCount,
		&rec.PublishedAt,
		&rec.AuthorHandle,
		&rec.VideoRemoteURL,
		&rec.DisplayImageURL,
		&rec.BlobReference,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(hashtags), &rec.Hashtags); err != nil {
		return nil, fmt.Errorf("failed to decode hashtags: %w", err)
	}
	if rec.Hashtags == nil {
		rec.Hashtags = []string{}
	}

	return rec, nil
}
