package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/voyago/reeltrip/cmd/reeltrip/container"
	commonmiddleware "github.com/voyago/reeltrip/common/middleware"
)

// scrapeLimits returns the rate limit chain for routes that can trigger an
// upstream scrape. Empty when rate limiting is disabled, so routes can
// append it unconditionally.
func scrapeLimits(c *container.Container) []echo.MiddlewareFunc {
	if c.RateLimiter == nil {
		return nil
	}

	cfg := c.Components.Config.RateLimit
	return []echo.MiddlewareFunc{
		commonmiddleware.GlobalRateLimitMiddleware(c.RateLimiter, cfg.GlobalLimit, cfg.WindowSeconds),
		commonmiddleware.ClientRateLimitMiddleware(c.RateLimiter, cfg.ClientLimit, cfg.WindowSeconds),
	}
}
