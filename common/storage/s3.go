package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/voyago/reeltrip/common/config"
	"github.com/voyago/reeltrip/common/logger"
)

// Cached videos never change once written, so downstream players and
// CDNs may hold them for a year.
const blobCacheControl = "public, max-age=31536000"

// S3BlobStore implements BlobStore on any S3-compatible endpoint
// (Cloudflare R2, MinIO, AWS S3).
type S3BlobStore struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
	presignTTL    time.Duration
	log           *logger.Logger
}

// NewS3BlobStore creates a blob store against cfg's endpoint
func NewS3BlobStore(cfg config.StorageConfig, log *logger.Logger) (*S3BlobStore, error) {
	endpoint, secure, err := splitEndpoint(cfg.S3Endpoint, cfg.S3UseSSL)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: secure,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	log.Info("s3 blob store ready", "endpoint", endpoint, "bucket", cfg.S3Bucket)

	return &S3BlobStore{
		client:        client,
		bucket:        cfg.S3Bucket,
		publicBaseURL: strings.TrimRight(cfg.S3PublicBaseURL, "/"),
		presignTTL:    cfg.S3PresignTTL,
		log:           log,
	}, nil
}

// splitEndpoint accepts both "host:port" and full URLs. A scheme in
// the URL wins over the configured SSL flag.
func splitEndpoint(endpoint string, useSSL bool) (string, bool, error) {
	if !strings.Contains(endpoint, "://") {
		return endpoint, useSSL, nil
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("invalid s3 endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid s3 endpoint %q: missing host", endpoint)
	}
	return u.Host, u.Scheme == "https", nil
}

// classifyPutError maps an upload failure onto the storage taxonomy so
// callers can tell a full bucket from an unreachable one.
func classifyPutError(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "QuotaExceeded" || resp.StatusCode == http.StatusInsufficientStorage {
		return ErrQuotaExceeded
	}
	return ErrUnavailable
}

// Put uploads the payload under key and returns the blob reference
func (s *S3BlobStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: blobCacheControl,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload blob %s: %w: %v", key, classifyPutError(err), err)
	}

	s.log.Debug("blob uploaded", "key", key, "bucket", s.bucket, "size", size)
	return key, nil
}

// Exists reports whether an object is stored under key
func (s *S3BlobStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NotFound" {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat blob %s: %w: %v", key, ErrUnavailable, err)
	}
	return true, nil
}

// URL returns a public link when a public base URL is configured,
// otherwise a presigned one.
func (s *S3BlobStore) URL(ctx context.Context, key string) (string, error) {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key, nil
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.presignTTL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign blob %s: %w", key, err)
	}
	return u.String(), nil
}

// Delete removes the object under key
func (s *S3BlobStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}
	return nil
}
