package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/voyago/reeltrip/cmd/reeltrip/container"
	"github.com/voyago/reeltrip/cmd/reeltrip/middleware"
	"github.com/voyago/reeltrip/cmd/reeltrip/models"
	"github.com/voyago/reeltrip/cmd/reeltrip/service"
	"github.com/voyago/reeltrip/common/bootstrap"
	"github.com/voyago/reeltrip/common/clients"
)

// ItineraryHandler serves trip plan generation
type ItineraryHandler struct {
	components *bootstrap.Components
	trips      *service.TripService
}

// NewItineraryHandler creates a new itinerary handler
func NewItineraryHandler(c *container.Container) *ItineraryHandler {
	return &ItineraryHandler{
		components: c.Components,
		trips:      c.Trip,
	}
}

// GenerateItinerary turns a reel URL into a day-by-day trip plan
// POST /api/v1/itineraries
func (h *ItineraryHandler) GenerateItinerary(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.GenerateItineraryRequest
	if err := c.Bind(&req); err != nil {
		return errorBody(c, http.StatusBadRequest, "bad_request", "invalid request body")
	}
	if req.URL == "" {
		return errorBody(c, http.StatusBadRequest, "bad_request", "url is required")
	}

	clientID := middleware.GetClientID(c)
	ctx = clients.WithClientID(ctx, clientID)

	h.components.Logger.Info("itinerary requested", "url", req.URL, "client_id", clientID)
	if h.components.Telemetry != nil {
		defer h.components.Telemetry.RecordDuration("itinerary_generate", time.Now())
	}

	plan, err := h.trips.GenerateFromReel(ctx, req.URL, req.Preferences)
	if err != nil {
		return respondError(c, h.components.Logger, err)
	}

	resp := map[string]interface{}{
		"itinerary": plan.Itinerary,
		"places":    plan.Places,
		"record":    plan.Record,
		"cache_hit": plan.CacheHit,
	}
	if plan.Warning != "" {
		resp["warning"] = plan.Warning
	}

	return c.JSON(http.StatusOK, resp)
}
