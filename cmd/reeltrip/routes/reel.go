package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/voyago/reeltrip/cmd/reeltrip/container"
	"github.com/voyago/reeltrip/cmd/reeltrip/handlers"
	"github.com/voyago/reeltrip/cmd/reeltrip/middleware"
)

// RegisterReelRoutes registers all reel cache routes
func RegisterReelRoutes(e *echo.Echo, c *container.Container) {
	// Create handler using services from container
	h := handlers.NewReelHandler(c)

	reels := e.Group("/api/v1/reels")
	reels.Use(middleware.ExtractClientID()) // Extract X-Client-ID into context
	{
		// Only the scrape-capable routes are metered
		scrape := scrapeLimits(c)
		reels.POST("", h.FetchReel, scrape...)           // POST /api/v1/reels
		reels.POST("/refresh", h.RefreshReel, scrape...) // POST /api/v1/reels/refresh
		reels.GET("", h.ListReels)                       // GET /api/v1/reels
		reels.GET("/:identity", h.GetReel)               // GET /api/v1/reels/DPabc123
		reels.GET("/:identity/video", h.GetVideoURL)     // GET /api/v1/reels/DPabc123/video
		reels.DELETE("/:identity", h.DeleteReel)         // DELETE /api/v1/reels/DPabc123
	}
}
