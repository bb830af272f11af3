package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/voyago/reeltrip/cmd/reeltrip/container"
	"github.com/voyago/reeltrip/cmd/reeltrip/routes"
	"github.com/voyago/reeltrip/common/bootstrap"
	"github.com/voyago/reeltrip/common/db"
	"github.com/voyago/reeltrip/common/server"
	"github.com/voyago/reeltrip/common/storage"
)

func main() {
	ctx := context.Background()

	// Bootstrap common components (config, logger, DB, cache, telemetry)
	components, err := bootstrap.Setup(ctx, "reeltrip",
		bootstrap.WithDBInitHook(ensureSchema),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap reeltrip: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	// Initialize service container (singleton pattern - all services created once)
	serviceContainer, err := container.NewContainer(components)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize service container: %v\n", err)
		os.Exit(1)
	}

	// Initialize Echo server
	e := setupEcho()

	// Setup middleware
	setupMiddleware(e)

	// Setup health check and root endpoints
	setupHealthCheck(e, serviceContainer)

	// Register all routes
	registerRoutes(e, serviceContainer)

	// Start server
	startServer(e, components)
}

// ensureSchema creates the cache table when the postgres backend is in use.
// The sqlite backend manages its own schema at open time.
func ensureSchema(database *db.DB) error {
	return storage.NewPostgresStore(database).EnsureSchema(context.Background())
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
}

// setupHealthCheck registers the health check and root endpoints
func setupHealthCheck(e *echo.Echo, serviceContainer *container.Container) {
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"message": "reel to itinerary api",
			"service": "reeltrip",
		})
	})

	e.GET("/health", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		if err := serviceContainer.Store.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status":  "degraded",
				"service": "reeltrip",
				"error":   "metadata store unreachable",
			})
		}

		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "reeltrip",
		})
	})
}

// registerRoutes registers all application routes using the service container
func registerRoutes(e *echo.Echo, serviceContainer *container.Container) {
	routes.RegisterReelRoutes(e, serviceContainer)
	routes.RegisterItineraryRoutes(e, serviceContainer)
}

// startServer runs the HTTP server until it fails or a shutdown signal
// arrives. Echo is mounted as the handler so in-flight requests drain
// before the process exits.
func startServer(e *echo.Echo, components *bootstrap.Components) {
	srv := server.New("reeltrip-api", components.Config.Service.Port, e, components.Logger)
	if err := srv.Start(); err != nil {
		components.Logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}
