package service

import "errors"

var (
	// ErrCacheUnavailable indicates the metadata store could not serve the
	// request. Callers should treat this as a retryable infrastructure fault,
	// not as a miss.
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrUpstreamTimeout indicates the scraping actor did not answer within
	// the configured deadline. No record is persisted in that case.
	ErrUpstreamTimeout = errors.New("upstream timeout")
)
