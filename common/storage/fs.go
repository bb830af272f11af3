package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/voyago/reeltrip/common/logger"
)

// FSBlobStore implements BlobStore on the local filesystem, for
// development and single-node deployments. Blobs live flat under
// {dir}/blobs/{key}.
type FSBlobStore struct {
	dir string
	log *logger.Logger
}

// NewFSBlobStore creates the blob directory if needed
func NewFSBlobStore(dir string, log *logger.Logger) (*FSBlobStore, error) {
	blobDir := filepath.Join(dir, "blobs")
	if err := os.MkdirAll(blobDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}

	log.Info("fs blob store ready", "dir", blobDir)
	return &FSBlobStore{dir: blobDir, log: log}, nil
}

// Put writes the payload to a temp file and renames it into place so
// readers never see a partial blob.
func (s *FSBlobStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	path, err := s.path(key)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, key+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp blob: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		if errors.Is(err, syscall.ENOSPC) {
			return "", fmt.Errorf("failed to write blob %s: %w", key, ErrQuotaExceeded)
		}
		return "", fmt.Errorf("failed to write blob %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close blob %s: %w", key, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to store blob %s: %w", key, err)
	}

	s.log.Debug("blob stored", "key", key, "path", path)
	return key, nil
}

// Exists reports whether a blob file exists under key
func (s *FSBlobStore) Exists(ctx context.Context, key string) (bool, error) {
	path, err := s.path(key)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat blob %s: %w", key, err)
	}
	return true, nil
}

// URL returns the absolute path of the blob file
func (s *FSBlobStore) URL(ctx context.Context, key string) (string, error) {
	path, err := s.path(key)
	if err != nil {
		return "", err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve blob %s: %w", key, err)
	}
	return abs, nil
}

// Delete removes the blob file. A missing file is not an error.
func (s *FSBlobStore) Delete(ctx context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}
	return nil
}

// path validates the key and maps it into the blob directory. Keys
// are flat names; anything that could escape the directory is
// rejected.
func (s *FSBlobStore) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.dir, key), nil
}
