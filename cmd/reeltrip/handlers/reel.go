package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/voyago/reeltrip/cmd/reeltrip/container"
	"github.com/voyago/reeltrip/cmd/reeltrip/middleware"
	"github.com/voyago/reeltrip/cmd/reeltrip/models"
	"github.com/voyago/reeltrip/cmd/reeltrip/service"
	"github.com/voyago/reeltrip/common/bootstrap"
	"github.com/voyago/reeltrip/common/clients"
	commonmodels "github.com/voyago/reeltrip/common/models"
)

// ReelHandler serves the reel cache surface
type ReelHandler struct {
	components *bootstrap.Components
	reels      *service.ReelCacheService
}

// NewReelHandler creates a new reel handler
func NewReelHandler(c *container.Container) *ReelHandler {
	return &ReelHandler{
		components: c.Components,
		reels:      c.ReelCache,
	}
}

// FetchReel resolves a reel URL to its cached record, scraping on a miss
// POST /api/v1/reels
func (h *ReelHandler) FetchReel(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.FetchReelRequest
	if err := c.Bind(&req); err != nil {
		return errorBody(c, http.StatusBadRequest, "bad_request", "invalid request body")
	}
	if req.URL == "" {
		return errorBody(c, http.StatusBadRequest, "bad_request", "url is required")
	}

	clientID := middleware.GetClientID(c)
	ctx = clients.WithClientID(ctx, clientID)

	h.components.Logger.Info("reel requested", "url", req.URL, "client_id", clientID)
	if h.components.Telemetry != nil {
		defer h.components.Telemetry.RecordDuration("reel_fetch", time.Now())
	}

	result, err := h.reels.GetOrFetch(ctx, req.URL)
	if err != nil {
		return respondError(c, h.components.Logger, err)
	}

	resp := map[string]interface{}{
		"record":         result.Record,
		"cache_hit":      result.CacheHit,
		"blob_persisted": result.Record.HasBlob(),
	}
	if result.BlobPersistErr != nil {
		resp["warning"] = fmt.Sprintf("video blob not persisted: %v", result.BlobPersistErr)
	}

	return c.JSON(http.StatusOK, resp)
}

// RefreshReel re-scrapes a reel regardless of cache state
// POST /api/v1/reels/refresh
func (h *ReelHandler) RefreshReel(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.FetchReelRequest
	if err := c.Bind(&req); err != nil {
		return errorBody(c, http.StatusBadRequest, "bad_request", "invalid request body")
	}
	if req.URL == "" {
		return errorBody(c, http.StatusBadRequest, "bad_request", "url is required")
	}

	clientID := middleware.GetClientID(c)
	ctx = clients.WithClientID(ctx, clientID)

	h.components.Logger.Info("reel refresh requested", "url", req.URL, "client_id", clientID)
	if h.components.Telemetry != nil {
		defer h.components.Telemetry.RecordDuration("reel_refresh", time.Now())
	}

	result, err := h.reels.Refresh(ctx, req.URL)
	if err != nil {
		return respondError(c, h.components.Logger, err)
	}

	resp := map[string]interface{}{
		"record":  result.Record,
		"changed": result.Changed,
	}
	if result.Diff != nil {
		resp["diff"] = result.Diff
	}
	if result.BlobPersistErr != nil {
		resp["warning"] = fmt.Sprintf("video blob not persisted: %v", result.BlobPersistErr)
	}

	return c.JSON(http.StatusOK, resp)
}

// GetReel returns a cached record without ever calling upstream
// GET /api/v1/reels/:identity
func (h *ReelHandler) GetReel(c echo.Context) error {
	ctx := c.Request().Context()

	identity := c.Param("identity")
	if identity == "" {
		return errorBody(c, http.StatusBadRequest, "bad_request", "identity is required")
	}

	rec, err := h.reels.Get(ctx, identity)
	if err != nil {
		return respondError(c, h.components.Logger, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"record": rec,
	})
}

// ListReels returns cached records, newest first
// GET /api/v1/reels?limit=50
func (h *ReelHandler) ListReels(c echo.Context) error {
	ctx := c.Request().Context()

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return errorBody(c, http.StatusBadRequest, "bad_request", "limit must be a non-negative integer")
		}
		limit = parsed
	}

	recs, err := h.reels.List(ctx, limit)
	if err != nil {
		return respondError(c, h.components.Logger, err)
	}
	if recs == nil {
		recs = []*commonmodels.ContentRecord{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"reels": recs,
		"count": len(recs),
	})
}

// DeleteReel evicts a record and its blob from the cache
// DELETE /api/v1/reels/:identity
func (h *ReelHandler) DeleteReel(c echo.Context) error {
	ctx := c.Request().Context()

	identity := c.Param("identity")
	if identity == "" {
		return errorBody(c, http.StatusBadRequest, "bad_request", "identity is required")
	}

	if err := h.reels.Delete(ctx, identity); err != nil {
		return respondError(c, h.components.Logger, err)
	}

	h.components.Logger.Info("reel deleted via api", "identity", identity)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "deleted",
		"identity": identity,
	})
}

// GetVideoURL resolves a playable URL for the reel's video
// GET /api/v1/reels/:identity/video
func (h *ReelHandler) GetVideoURL(c echo.Context) error {
	ctx := c.Request().Context()

	identity := c.Param("identity")
	if identity == "" {
		return errorBody(c, http.StatusBadRequest, "bad_request", "identity is required")
	}

	url, source, err := h.reels.VideoURL(ctx, identity)
	if err != nil {
		return respondError(c, h.components.Logger, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"identity":  identity,
		"video_url": url,
		"source":    source,
	})
}
