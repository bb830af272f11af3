package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/voyago/reeltrip/cmd/reeltrip/container"
	"github.com/voyago/reeltrip/cmd/reeltrip/handlers"
	"github.com/voyago/reeltrip/cmd/reeltrip/middleware"
)

// RegisterItineraryRoutes registers the trip planning routes
func RegisterItineraryRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewItineraryHandler(c)

	trips := e.Group("/api/v1/itineraries")
	trips.Use(middleware.ExtractClientID())
	{
		// Planning scrapes on a cache miss, so it shares the scrape limits
		trips.POST("", h.GenerateItinerary, scrapeLimits(c)...) // POST /api/v1/itineraries
	}
}
