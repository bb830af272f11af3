package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/google/uuid"
	"github.com/voyago/reeltrip/common/config"
	"github.com/voyago/reeltrip/common/logger"
	"github.com/voyago/reeltrip/common/models"
	"github.com/voyago/reeltrip/common/reelid"
	rediscommon "github.com/voyago/reeltrip/common/redis"
	"github.com/voyago/reeltrip/common/storage"
	"golang.org/x/sync/singleflight"
)

// Scraper fetches reel metadata from the upstream actor.
type Scraper interface {
	Scrape(ctx context.Context, reelURL string) (*models.ScrapeResult, error)
}

// VideoFetcher downloads reel video payloads.
type VideoFetcher interface {
	DoRequest(ctx context.Context, method, url string, body io.Reader) (*http.Response, error)
}

// MarkerStore coordinates fetches across processes so that concurrent
// misses for the same reel trigger a single upstream scrape. Implemented
// by the shared Redis client. A nil MarkerStore limits deduplication to
// this process.
type MarkerStore interface {
	SetNX(ctx context.Context, key, value string, expiry time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	ReleaseIfHolder(ctx context.Context, key, token string) (bool, error)
}

// FetchResult is the outcome of a cache lookup or fill.
type FetchResult struct {
	Record   *models.ContentRecord
	CacheHit bool

	// BlobPersistErr is set when the record was stored but the video body
	// could not be. The fetch still counts as a success; the next call
	// serves the record from cache.
	BlobPersistErr error
}

// RefreshResult reports what a forced re-scrape changed.
type RefreshResult struct {
	Record         *models.ContentRecord
	Changed        bool
	Diff           json.RawMessage
	BlobPersistErr error
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

var errVideoTooLarge = errors.New("video exceeds configured size cap")

// ReelCacheService owns the cache-aside flow: resolve the reel identity,
// serve from the metadata store when possible, and otherwise scrape,
// persist and return the fresh record.
type ReelCacheService struct {
	store   storage.MetadataStore
	blobs   storage.BlobStore
	scraper Scraper
	video   VideoFetcher
	markers MarkerStore
	cfg     config.FetchConfig
	logger  *logger.Logger
	group   singleflight.Group
}

// NewReelCacheService creates a reel cache service
func NewReelCacheService(
	store storage.MetadataStore,
	blobs storage.BlobStore,
	scraper Scraper,
	video VideoFetcher,
	markers MarkerStore,
	cfg config.FetchConfig,
	logger *logger.Logger,
) *ReelCacheService {
	return &ReelCacheService{
		store:   store,
		blobs:   blobs,
		scraper: scraper,
		video:   video,
		markers: markers,
		cfg:     cfg,
		logger:  logger,
	}
}

// GetOrFetch returns the cached record for the reel URL, scraping and
// persisting it first on a miss. Identity resolution happens before any
// store access, so an unusable URL never costs a lookup or a scrape.
func (s *ReelCacheService) GetOrFetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	ref, err := reelid.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.Get(ctx, ref.ID)
	if err == nil {
		s.logger.Debug("cache hit", "identity", ref.ID)
		return &FetchResult{Record: rec, CacheHit: true}, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	v, err, _ := s.group.Do(ref.ID, func() (interface{}, error) {
		return s.fetchMiss(ctx, ref)
	})
	if err != nil {
		return nil, err
	}
	return v.(*FetchResult), nil
}

// fetchMiss runs inside the singleflight group, so within this process it
// executes at most once per identity at a time.
func (s *ReelCacheService) fetchMiss(ctx context.Context, ref reelid.Ref) (*FetchResult, error) {
	// another caller may have filled the cache while this one queued
	rec, err := s.store.Get(ctx, ref.ID)
	if err == nil {
		return &FetchResult{Record: rec, CacheHit: true}, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	if s.markers == nil {
		return s.scrapeAndPersist(ctx, ref)
	}

	holder := uuid.New().String()
	acquired, err := s.markers.SetNX(ctx, s.markerKey(ref.ID), holder, s.cfg.MarkerTTL)
	if err != nil {
		// marker store down: fall back to in-process dedupe only
		s.logger.Warn("fetch marker unavailable, proceeding without cross-process guard",
			"identity", ref.ID, "error", err)
		return s.scrapeAndPersist(ctx, ref)
	}
	if !acquired {
		s.logger.Info("fetch in progress elsewhere, waiting", "identity", ref.ID)
		return s.awaitPeerFetch(ctx, ref)
	}

	defer func() {
		if _, rerr := s.markers.ReleaseIfHolder(ctx, s.markerKey(ref.ID), holder); rerr != nil {
			s.logger.Warn("could not release fetch marker", "identity", ref.ID, "error", rerr)
		}
	}()

	return s.scrapeAndPersist(ctx, ref)
}

// awaitPeerFetch polls the metadata store while another process holds the
// fetch marker. If the marker expires without a record appearing, the
// holder died mid-fetch and this process takes over.
func (s *ReelCacheService) awaitPeerFetch(ctx context.Context, ref reelid.Ref) (*FetchResult, error) {
	ticker := time.NewTicker(s.cfg.MarkerPoll)
	defer ticker.Stop()

	deadline := time.NewTimer(s.cfg.MarkerTTL + s.cfg.MarkerPoll)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, fmt.Errorf("%w: gave up waiting for concurrent fetch of %s", ErrUpstreamTimeout, ref.ID)
		case <-ticker.C:
			rec, err := s.store.Get(ctx, ref.ID)
			if err == nil {
				return &FetchResult{Record: rec, CacheHit: true}, nil
			}
			if !errors.Is(err, storage.ErrNotFound) {
				return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
			}

			_, merr := s.markers.Get(ctx, s.markerKey(ref.ID))
			if merr == nil {
				continue // holder still at work
			}
			if !errors.Is(merr, rediscommon.ErrKeyNotFound) {
				s.logger.Warn("fetch marker unreadable while waiting", "identity", ref.ID, "error", merr)
				return s.scrapeAndPersist(ctx, ref)
			}

			holder := uuid.New().String()
			acquired, aerr := s.markers.SetNX(ctx, s.markerKey(ref.ID), holder, s.cfg.MarkerTTL)
			if aerr != nil || acquired {
				if acquired {
					defer func() {
						if _, rerr := s.markers.ReleaseIfHolder(ctx, s.markerKey(ref.ID), holder); rerr != nil {
							s.logger.Warn("could not release fetch marker", "identity", ref.ID, "error", rerr)
						}
					}()
				}
				s.logger.Info("taking over abandoned fetch", "identity", ref.ID)
				return s.scrapeAndPersist(ctx, ref)
			}
			// a different waiter won the takeover; keep polling
		}
	}
}

// scrapeAndPersist calls the upstream actor and stores the result. A blob
// failure does not fail the fetch: the record is persisted without a blob
// reference and the error is reported alongside the result.
func (s *ReelCacheService) scrapeAndPersist(ctx context.Context, ref reelid.Ref) (*FetchResult, error) {
	start := time.Now()
	log := s.logger.WithIdentity(ref.ID).WithFetchID(uuid.New().String())

	res, err := s.scraper.Scrape(ctx, ref.CanonicalURL)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
		}
		return nil, err
	}

	rec := models.RecordFromScrape(ref.ID, ref.CanonicalURL, res, time.Now().UTC())

	var blobErr error
	if res.VideoURL != "" {
		key, perr := s.persistVideo(ctx, ref.ID, res.VideoURL)
		if perr != nil {
			blobErr = perr
			log.Warn("video blob not persisted", "error", perr)
		} else {
			rec.BlobReference = &key
		}
	}

	stored, err := s.store.Upsert(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	log.Info("reel cached",
		"blob_persisted", stored.HasBlob(),
		"duration_ms", time.Since(start).Milliseconds())

	return &FetchResult{Record: stored, BlobPersistErr: blobErr}, nil
}

// Get returns the cached record without triggering a fetch.
func (s *ReelCacheService) Get(ctx context.Context, identity string) (*models.ContentRecord, error) {
	rec, err := s.store.Get(ctx, identity)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return rec, nil
}

// List returns cached records, newest first.
func (s *ReelCacheService) List(ctx context.Context, limit int) ([]*models.ContentRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	recs, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return recs, nil
}

// Delete removes the record and its blob. The blob removal is best
// effort; an orphaned object is preferable to a dangling reference.
func (s *ReelCacheService) Delete(ctx context.Context, identity string) error {
	rec, err := s.store.Get(ctx, identity)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	if err := s.store.Delete(ctx, identity); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	if rec.HasBlob() {
		if err := s.blobs.Delete(ctx, *rec.BlobReference); err != nil {
			s.logger.Warn("blob not removed", "identity", identity, "error", err)
		}
	}

	s.logger.Info("reel deleted", "identity", identity)
	return nil
}

// Refresh re-scrapes the reel regardless of cache state and reports what
// changed. The created_at of an existing record is preserved by the store;
// an already persisted blob is kept rather than downloaded again.
func (s *ReelCacheService) Refresh(ctx context.Context, rawURL string) (*RefreshResult, error) {
	ref, err := reelid.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	prior, err := s.store.Get(ctx, ref.ID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	res, err := s.scraper.Scrape(ctx, ref.CanonicalURL)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
		}
		return nil, err
	}

	rec := models.RecordFromScrape(ref.ID, ref.CanonicalURL, res, time.Now().UTC())

	var blobErr error
	if prior != nil && prior.HasBlob() {
		rec.BlobReference = prior.BlobReference
	} else if res.VideoURL != "" {
		key, perr := s.persistVideo(ctx, ref.ID, res.VideoURL)
		if perr != nil {
			blobErr = perr
			s.logger.Warn("video blob not persisted", "identity", ref.ID, "error", perr)
		} else {
			rec.BlobReference = &key
		}
	}

	stored, err := s.store.Upsert(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	result := &RefreshResult{Record: stored, BlobPersistErr: blobErr}
	if prior == nil {
		result.Changed = true
		return result, nil
	}

	diff, err := recordDiff(prior, stored)
	if err != nil {
		s.logger.Warn("could not diff refreshed record", "identity", ref.ID, "error", err)
		result.Changed = true
		return result, nil
	}
	result.Diff = diff
	result.Changed = len(diff) > 2 // "{}" means nothing changed

	s.logger.Info("reel refreshed", "identity", ref.ID, "changed", result.Changed)
	return result, nil
}

// VideoURL resolves a playable URL for the reel's video, preferring the
// durable blob copy over the scraper-provided remote URL. A record whose
// first fetch could not persist the blob is rehydrated here.
func (s *ReelCacheService) VideoURL(ctx context.Context, identity string) (string, string, error) {
	rec, err := s.Get(ctx, identity)
	if err != nil {
		return "", "", err
	}

	if rec.HasBlob() {
		exists, err := s.blobs.Exists(ctx, *rec.BlobReference)
		switch {
		case err != nil:
			s.logger.Warn("blob store unreachable, falling back", "identity", identity, "error", err)
		case exists:
			url, uerr := s.blobs.URL(ctx, *rec.BlobReference)
			if uerr == nil {
				return url, "blob", nil
			}
			s.logger.Warn("blob URL unavailable, falling back", "identity", identity, "error", uerr)
		default:
			s.logger.Warn("blob reference dangling, falling back", "identity", identity, "blob", *rec.BlobReference)
		}
	} else if rec.VideoRemoteURL != "" {
		key, perr := s.persistVideo(ctx, identity, rec.VideoRemoteURL)
		if perr != nil {
			s.logger.Warn("video rehydration failed", "identity", identity, "error", perr)
		} else {
			rec.BlobReference = &key
			if stored, uerr := s.store.Upsert(ctx, rec); uerr == nil {
				rec = stored
			} else {
				s.logger.Warn("rehydrated blob not recorded", "identity", identity, "error", uerr)
			}
			if url, uerr := s.blobs.URL(ctx, key); uerr == nil {
				return url, "blob", nil
			}
		}
	}

	if rec.VideoRemoteURL != "" {
		return rec.VideoRemoteURL, "remote", nil
	}
	return "", "", fmt.Errorf("video for %s: %w", identity, storage.ErrNotFound)
}

// persistVideo downloads the reel video and stores it under the blob key
// for the identity. Returns the blob key on success.
func (s *ReelCacheService) persistVideo(ctx context.Context, identity, videoURL string) (string, error) {
	dctx, cancel := context.WithTimeout(ctx, s.cfg.DownloadTimeout)
	defer cancel()

	resp, err := s.video.DoRequest(dctx, http.MethodGet, videoURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to download video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download video: unexpected status %d", resp.StatusCode)
	}
	if s.cfg.MaxVideoBytes > 0 && resp.ContentLength > s.cfg.MaxVideoBytes {
		return "", fmt.Errorf("%w: %d bytes", errVideoTooLarge, resp.ContentLength)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = storage.VideoContentType
	}

	body := io.Reader(resp.Body)
	if s.cfg.MaxVideoBytes > 0 {
		body = &cappedReader{r: resp.Body, max: s.cfg.MaxVideoBytes}
	}

	key, err := s.blobs.Put(dctx, storage.BlobKey(identity), body, resp.ContentLength, contentType)
	if err != nil {
		return "", fmt.Errorf("failed to store video blob: %w", err)
	}
	return key, nil
}

func (s *ReelCacheService) markerKey(identity string) string {
	return "reel:fetch:" + identity
}

// cappedReader fails the stream once more than max bytes have been read,
// so an oversized body aborts the blob upload instead of truncating it.
type cappedReader struct {
	r   io.Reader
	max int64
	n   int64
}

func (c *cappedReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if c.n > c.max {
		return n, fmt.Errorf("%w: more than %d bytes", errVideoTooLarge, c.max)
	}
	return n, err
}

// recordDiff produces a JSON merge patch between two versions of a record.
// Timestamps always move on refresh and would drown out real changes, so
// they are zeroed before diffing.
func recordDiff(before, after *models.ContentRecord) (json.RawMessage, error) {
	prev := before.Clone()
	next := after.Clone()
	prev.CreatedAt, prev.UpdatedAt = time.Time{}, time.Time{}
	next.CreatedAt, next.UpdatedAt = time.Time{}, time.Time{}

	prevJSON, err := json.Marshal(prev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal prior record: %w", err)
	}
	nextJSON, err := json.Marshal(next)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal refreshed record: %w", err)
	}

	return jsonpatch.CreateMergePatch(prevJSON, nextJSON)
}
