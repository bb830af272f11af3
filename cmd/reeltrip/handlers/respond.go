package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/voyago/reeltrip/cmd/reeltrip/service"
	"github.com/voyago/reeltrip/common/clients"
	"github.com/voyago/reeltrip/common/logger"
	"github.com/voyago/reeltrip/common/reelid"
	"github.com/voyago/reeltrip/common/storage"
)

// respondError maps service errors onto HTTP statuses. Every handler
// funnels failures through here so callers can tell an unusable URL
// (422) from a dead cache (503), a slow upstream (504) and a failed
// scrape or model call (502).
func respondError(c echo.Context, log *logger.Logger, err error) error {
	switch {
	case errors.Is(err, reelid.ErrInvalidReference):
		return errorBody(c, http.StatusUnprocessableEntity, "invalid_reference",
			"couldn't understand that reference")
	case errors.Is(err, storage.ErrNotFound):
		return errorBody(c, http.StatusNotFound, "not_found",
			"no cached reel for that identity")
	case errors.Is(err, service.ErrUpstreamTimeout), errors.Is(err, context.DeadlineExceeded):
		log.Warn("upstream timed out", "error", err)
		return errorBody(c, http.StatusGatewayTimeout, "upstream_timeout",
			"temporarily unavailable, try again")
	case errors.Is(err, service.ErrCacheUnavailable):
		log.Warn("cache unavailable", "error", err)
		return errorBody(c, http.StatusServiceUnavailable, "cache_unavailable",
			"temporarily unavailable, try again")
	case errors.Is(err, clients.ErrScrape):
		log.Warn("scrape failed", "error", err)
		return errorBody(c, http.StatusBadGateway, "scrape_failed",
			"temporarily unavailable, try again")
	case errors.Is(err, clients.ErrLLM):
		log.Warn("model call failed", "error", err)
		return errorBody(c, http.StatusBadGateway, "llm_failed",
			"temporarily unavailable, try again")
	default:
		log.Error("request failed", "error", err)
		return errorBody(c, http.StatusInternalServerError, "internal",
			"internal error")
	}
}

func errorBody(c echo.Context, status int, code, message string) error {
	return c.JSON(status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}
