package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/voyago/reeltrip/common/db"
	"github.com/voyago/reeltrip/common/models"
)

const recordColumns = `identity, source_url, caption, hashtags, location_label, engagement_count,
	published_at, author_handle, video_remote_url, display_image_url, blob_reference, created_at, updated_at`

// PostgresStore implements MetadataStore on the shared pgx pool
type PostgresStore struct {
	db *db.DB
}

// NewPostgresStore creates a Postgres-backed metadata store
func NewPostgresStore(database *db.DB) *PostgresStore {
	return &PostgresStore{db: database}
}

// EnsureSchema creates the reel_cache table if it does not exist
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS reel_cache (
			identity TEXT PRIMARY KEY,
			source_url TEXT NOT NULL,
			caption TEXT NOT NULL DEFAULT '',
			hashtags JSONB NOT NULL DEFAULT '[]',
			location_label TEXT NOT NULL DEFAULT '',
			engagement_count BIGINT NOT NULL DEFAULT 0,
			published_at TEXT NOT NULL DEFAULT '',
			author_handle TEXT NOT NULL DEFAULT '',
			video_remote_url TEXT NOT NULL DEFAULT '',
			display_image_url TEXT NOT NULL DEFAULT '',
			blob_reference TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`

	if _, err := s.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create reel_cache table: %w", err)
	}

	index := `CREATE INDEX IF NOT EXISTS idx_reel_cache_created_at ON reel_cache (created_at DESC)`
	if _, err := s.db.Exec(ctx, index); err != nil {
		return fmt.Errorf("failed to create reel_cache index: %w", err)
	}

	return nil
}

// Get retrieves a record by identity
func (s *PostgresStore) Get(ctx context.Context, identity string) (*models.ContentRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM reel_cache
		WHERE identity = $1
	`

	rec := &models.ContentRecord{}
	err := s.db.QueryRow(ctx, query, identity).Scan(
		&rec.Identity,
		&rec.SourceURL,
		&rec.Caption,
		&rec.Hashtags,
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
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("reel %s: %w", identity, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reel %s: %w: %v", identity, ErrUnavailable, err)
	}

	return rec, nil
}

// Upsert inserts or updates a record. The database owns both
// timestamps: created_at is written once, updated_at on every call.
func (s *PostgresStore) Upsert(ctx context.Context, rec *models.ContentRecord) (*models.ContentRecord, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO reel_cache (
			identity, source_url, caption, hashtags, location_label, engagement_count,
			published_at, author_handle, video_remote_url, display_image_url, blob_reference
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (identity) DO UPDATE SET
			source_url = EXCLUDED.source_url,
			caption = EXCLUDED.caption,
			hashtags = EXCLUDED.hashtags,
			location_label = EXCLUDED.location_label,
			engagement_count = EXCLUDED.engagement_count,
			published_at = EXCLUDED.published_at,
			author_handle = EXCLUDED.author_handle,
			video_remote_url = EXCLUDED.video_remote_url,
			display_image_url = EXCLUDED.display_image_url,
			blob_reference = EXCLUDED.blob_reference,
			updated_at = now()
		RETURNING ` + recordColumns + `
	`

	stored := &models.ContentRecord{}
	err := s.db.QueryRow(
		ctx,
		query,
		rec.Identity,
		rec.SourceURL,
		rec.Caption,
		rec.Hashtags,
		rec.LocationLabel,
		rec.EngagementCount,
		rec.PublishedAt,
		rec.AuthorHandle,
		rec.VideoRemoteURL,
		rec.DisplayImageURL,
		rec.BlobReference,
	).Scan(
		&stored.Identity,
		&stored.SourceURL,
		&stored.Caption,
		&stored.Hashtags,
		&stored.LocationLabel,
		&stored.EngagementCount,
		&stored.PublishedAt,
		&stored.AuthorHandle,
		&stored.VideoRemoteURL,
		&stored.DisplayImageURL,
		&stored.BlobReference,
		&stored.CreatedAt,
		&stored.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert reel %s: %w: %v", rec.Identity, ErrUnavailable, err)
	}

	return stored, nil
}

// List retrieves records ordered by creation time, newest first
func (s *PostgresStore) List(ctx context.Context, limit int) ([]*models.ContentRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM reel_cache
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reels: %w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var records []*models.ContentRecord
	for rows.Next() {
		rec := &models.ContentRecord{}
		err := rows.Scan(
			&rec.Identity,
			&rec.SourceURL,
			&rec.Caption,
			&rec.Hashtags,
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
func (s *PostgresStore) Delete(ctx context.Context, identity string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM reel_cache WHERE identity = $1`, identity)
	if err != nil {
		return fmt.Errorf("failed to delete reel %s: %w: %v", identity, ErrUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reel %s: %w", identity, ErrNotFound)
	}
	return nil
}

// Ping verifies the database is reachable
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Health(ctx)
}

// Close is a no-op: the pool lifecycle belongs to bootstrap
func (s *PostgresStore) Close() error {
	return nil
}
