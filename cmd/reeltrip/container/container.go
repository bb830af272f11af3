package container

import (
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/voyago/reeltrip/cmd/reeltrip/service"
	"github.com/voyago/reeltrip/common/bootstrap"
	"github.com/voyago/reeltrip/common/cache"
	"github.com/voyago/reeltrip/common/clients"
	"github.com/voyago/reeltrip/common/ratelimit"
	rediscommon "github.com/voyago/reeltrip/common/redis"
	"github.com/voyago/reeltrip/common/storage"
	"github.com/voyago/reeltrip/common/validation"
)

// Container holds all initialized clients and services (singleton pattern)
type Container struct {
	// Components
	Components *bootstrap.Components
	Redis      *rediscommon.Client // nil when Redis is disabled
	RedisRaw   *redis.Client

	// Storage
	Store storage.MetadataStore
	Blobs storage.BlobStore

	// Outbound clients
	HTTP    *clients.HTTPClient
	Scraper *clients.ScraperClient
	LLM     *clients.LLMClient

	// RateLimiter is nil when rate limiting is disabled or Redis is off
	RateLimiter *ratelimit.RateLimiter

	// Services
	ReelCache  *service.ReelCacheService
	Extraction *service.PlaceExtractionService
	Itinerary  *service.ItineraryService
	Trip       *service.TripService
}

// NewContainer initializes all clients and services once
func NewContainer(components *bootstrap.Components) (*Container, error) {
	cfg := components.Config

	// Redis backs the cross-process fetch marker, the rate limiter and
	// optionally the extraction cache. Every consumer degrades without it.
	var (
		redisRaw    *redis.Client
		redisClient *rediscommon.Client
	)
	if cfg.Redis.Enabled {
		redisRaw = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		redisClient = rediscommon.NewClient(redisRaw, components.Logger)
		components.AddCleanup(redisRaw.Close)
	}

	store, err := storage.NewMetadataStore(cfg, components.DB, components.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata store: %w", err)
	}
	components.AddCleanup(store.Close)

	blobs, err := storage.NewBlobStore(cfg, components.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob store: %w", err)
	}

	// Outbound clients. Per-call deadlines come from contexts, so the
	// shared http.Client carries no global timeout.
	httpClient := clients.NewHTTPClient(&http.Client{}, components.Logger)
	scraperClient := clients.NewScraperClient(httpClient, cfg.Scraper, components.Logger)
	llmClient := clients.NewLLMClient(cfg.LLM, components.Logger)

	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled && redisRaw != nil {
		rateLimiter = ratelimit.NewRateLimiter(redisRaw, components.Logger)
	}

	// Extraction cache: prefer Redis when configured, otherwise use the
	// bootstrap-provided memory cache (which may be nil).
	extractionCache := components.Cache
	if cfg.Cache.Enabled && cfg.Cache.Type == "redis" && redisClient != nil {
		extractionCache = cache.NewRedisCache(redisClient, "reeltrip")
	}

	// Initialize services (bottom-up: dependencies first)
	var markers service.MarkerStore
	if redisClient != nil {
		markers = redisClient
	}
	reelCacheService := service.NewReelCacheService(
		store,
		blobs,
		scraperClient,
		httpClient,
		markers,
		cfg.Fetch,
		components.Logger,
	)

	placeFilter := service.NewPlaceFilter()
	if err := placeFilter.Check(cfg.Extraction.FilterExpr); err != nil {
		return nil, fmt.Errorf("invalid place filter expression: %w", err)
	}
	extractionService := service.NewPlaceExtractionService(
		llmClient,
		extractionCache,
		placeFilter,
		cfg.Extraction,
		components.Logger,
	)

	itineraryService := service.NewItineraryService(
		llmClient,
		validation.NewItineraryValidator(),
		components.Logger,
	)

	tripService := service.NewTripService(
		reelCacheService,
		extractionService,
		itineraryService,
		components.Logger,
	)

	return &Container{
		Components:  components,
		Redis:       redisClient,
		RedisRaw:    redisRaw,
		Store:       store,
		Blobs:       blobs,
		HTTP:        httpClient,
		Scraper:     scraperClient,
		LLM:         llmClient,
		RateLimiter: rateLimiter,
		ReelCache:   reelCacheService,
		Extraction:  extractionService,
		Itinerary:   itineraryService,
		Trip:        tripService,
	}, nil
}
