package middleware

import (
	"github.com/labstack/echo/v4"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ClientIDKey is the context key for storing the caller identity
	ClientIDKey ContextKey = "client_id"

	// AnonymousClient is used when the caller does not identify itself.
	// Per-client rate limits then apply to the anonymous pool as a whole.
	AnonymousClient = "anonymous"
)

// ExtractClientID is a middleware that extracts the X-Client-ID header
// and stores it in the request context.
//
// Scrape-triggering routes are metered per client, so every request gets
// an identity even when the header is missing.
//
// Usage:
//
//	reels := e.Group("/api/v1/reels")
//	reels.Use(middleware.ExtractClientID())
//
// Accessing in handlers:
//
//	clientID := middleware.GetClientID(c)
func ExtractClientID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			clientID := c.Request().Header.Get("X-Client-ID")
			if clientID == "" {
				clientID = AnonymousClient
			}
			c.Set(string(ClientIDKey), clientID)
			return next(c)
		}
	}
}

// GetClientID retrieves the client identity from the request context.
// Returns AnonymousClient if the middleware did not run.
func GetClientID(c echo.Context) string {
	clientID := c.Get(string(ClientIDKey))
	if clientID == nil {
		return AnonymousClient
	}
	return clientID.(string)
}
