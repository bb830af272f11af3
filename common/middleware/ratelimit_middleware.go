package middleware

import (
	"fmt"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/voyago/reeltrip/common/ratelimit"
)

// isInternalRequest checks if the request is from an internal service
// Internal services set X-Internal-Service header to bypass rate limits
func isInternalRequest(c echo.Context) bool {
	internalHeader := c.Request().Header.Get("X-Internal-Service")
	if internalHeader == "" {
		return false
	}

	// Verify against shared secret (prevents spoofing)
	expectedSecret := os.Getenv("INTERNAL_SERVICE_SECRET")
	if expectedSecret == "" {
		expectedSecret = "default-internal-secret-change-in-prod" // Fallback for dev
	}

	return internalHeader == expectedSecret
}

// GlobalRateLimitMiddleware checks the service-wide scrape budget.
// Mounted only on routes that can trigger an upstream scrape; cache
// reads never pass through here.
func GlobalRateLimitMiddleware(rateLimiter *ratelimit.RateLimiter, limit int64, windowSec int) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if isInternalRequest(c) {
				return next(c)
			}

			result, err := rateLimiter.CheckGlobalLimit(c.Request().Context(), limit, windowSec)
			if err != nil {
				// On error, allow request (fail open for availability)
				return next(c)
			}

			if !result.Allowed {
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"error":   "global_rate_limit_exceeded",
					"message": "Service is experiencing high load. Please try again later.",
					"details": map[string]interface{}{
						"limit":               result.Limit,
						"window":              fmt.Sprintf("%d seconds", windowSec),
						"retry_after_seconds": result.RetryAfterSeconds,
					},
				})
			}

			return next(c)
		}
	}
}

// ClientRateLimitMiddleware checks per-client scrape budgets.
// Requires the client id to be set in context by the ClientID middleware.
func ClientRateLimitMiddleware(rateLimiter *ratelimit.RateLimiter, limit int64, windowSec int) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if isInternalRequest(c) {
				return next(c)
			}

			clientID, ok := c.Get("client_id").(string)
			if !ok || clientID == "" {
				// No client id, only the global budget applies
				return next(c)
			}

			result, err := rateLimiter.CheckClientLimit(c.Request().Context(), clientID, limit, windowSec)
			if err != nil {
				// On error, allow request (fail open for availability)
				return next(c)
			}

			if !result.Allowed {
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"error":   "client_rate_limit_exceeded",
					"message": "You have exceeded your scrape quota. Please wait before trying again.",
					"details": map[string]interface{}{
						"client_id":           clientID,
						"limit":               result.Limit,
						"window":              fmt.Sprintf("%d seconds", windowSec),
						"current_count":       result.CurrentCount,
						"retry_after_seconds": result.RetryAfterSeconds,
					},
				})
			}

			return next(c)
		}
	}
}
