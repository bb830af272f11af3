package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all service configuration
type Config struct {
	Service    ServiceConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Storage    StorageConfig
	Scraper    ScraperConfig
	LLM        LLMConfig
	Extraction ExtractionConfig
	Fetch      FetchConfig
	Cache      CacheConfig
	RateLimit  RateLimitConfig
	Telemetry  TelemetryConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	SSLMode     string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
}

// RedisConfig holds Redis connection settings.
// Redis backs the cross-process fetch marker and the rate limiter;
// the service degrades gracefully when it is disabled or unreachable.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// StorageConfig selects the metadata and blob backends.
// Exactly one implementation of each is constructed at startup.
type StorageConfig struct {
	MetadataBackend string // "postgres" or "sqlite"
	BlobBackend     string // "s3" or "fs"

	SQLitePath string // sqlite backend
	FSDir      string // fs blob backend

	// S3-compatible blob backend (Cloudflare R2, MinIO, AWS S3)
	S3Endpoint      string
	S3Region        string
	S3Bucket        string
	S3AccessKey     string
	S3SecretKey     string
	S3UseSSL        bool
	S3PublicBaseURL string        // when set, URL() returns public links instead of presigned ones
	S3PresignTTL    time.Duration // presigned URL validity
}

// ScraperConfig holds settings for the external scraping actor
type ScraperConfig struct {
	BaseURL string
	Token   string
	ActorID string
	Timeout time.Duration
}

// LLMConfig holds language-model client settings
type LLMConfig struct {
	APIKey      string
	BaseURL     string // override for proxies/self-hosted gateways; empty = api.openai.com
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// ExtractionConfig tunes place extraction
type ExtractionConfig struct {
	FilterExpr string // CEL predicate applied to each extracted place
	CacheTTL   time.Duration
}

// FetchConfig tunes the miss path of the cache manager
type FetchConfig struct {
	MarkerTTL       time.Duration // cross-process in-progress marker lifetime
	MarkerPoll      time.Duration // how often waiters re-check the metadata store
	DownloadTimeout time.Duration // video download bound
	MaxVideoBytes   int64         // download size cap
}

// CacheConfig holds settings for the extraction result cache
type CacheConfig struct {
	Enabled bool
	Type    string // "memory" or "redis"
}

// RateLimitConfig guards the metered scrape path
type RateLimitConfig struct {
	Enabled       bool
	GlobalLimit   int64 // scrape-triggering requests per window, service wide
	ClientLimit   int64 // per client id
	WindowSeconds int
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	EnablePprof bool
	PprofPort   int
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8000),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"), // Default to text for development
		},
		Database: DatabaseConfig{
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "reeltrip"),
			User:        getEnv("POSTGRES_USER", "reeltrip"),
			Password:    getEnv("POSTGRES_PASSWORD", "reeltrip"),
			SSLMode:     getEnv("POSTGRES_SSLMODE", "disable"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 20),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 2),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Storage: StorageConfig{
			MetadataBackend: getEnv("STORAGE_METADATA_BACKEND", "sqlite"),
			BlobBackend:     getEnv("STORAGE_BLOB_BACKEND", "fs"),
			SQLitePath:      getEnv("SQLITE_PATH", "./cache/reeltrip.db"),
			FSDir:           getEnv("LOCAL_CACHE_DIR", "./cache"),
			S3Endpoint:      getEnv("R2_ENDPOINT_URL", ""),
			S3Region:        getEnv("R2_REGION", "auto"),
			S3Bucket:        getEnv("R2_BUCKET_NAME", ""),
			S3AccessKey:     getEnv("R2_ACCESS_KEY_ID", ""),
			S3SecretKey:     getEnv("R2_SECRET_ACCESS_KEY", ""),
			S3UseSSL:        getEnvBool("R2_USE_SSL", true),
			S3PublicBaseURL: getEnv("R2_PUBLIC_URL", ""),
			S3PresignTTL:    getEnvDuration("R2_PRESIGN_TTL", 1*time.Hour),
		},
		Scraper: ScraperConfig{
			BaseURL: getEnv("SCRAPER_BASE_URL", "https://api.apify.com"),
			Token:   getEnv("SCRAPER_TOKEN", ""),
			ActorID: getEnv("SCRAPER_ACTOR_ID", "apify~instagram-scraper"),
			Timeout: getEnvDuration("SCRAPER_TIMEOUT", 120*time.Second),
		},
		LLM: LLMConfig{
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", ""),
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			Temperature: float32(getEnvFloat("OPENAI_TEMPERATURE", 0.4)),
			Timeout:     getEnvDuration("OPENAI_TIMEOUT", 90*time.Second),
		},
		Extraction: ExtractionConfig{
			FilterExpr: getEnv("PLACE_FILTER_EXPR", `place.name != "" && place.confidence >= 0.5`),
			CacheTTL:   getEnvDuration("PLACE_CACHE_TTL", 24*time.Hour),
		},
		Fetch: FetchConfig{
			MarkerTTL:       getEnvDuration("FETCH_MARKER_TTL", 3*time.Minute),
			MarkerPoll:      getEnvDuration("FETCH_MARKER_POLL", 500*time.Millisecond),
			DownloadTimeout: getEnvDuration("VIDEO_DOWNLOAD_TIMEOUT", 60*time.Second),
			MaxVideoBytes:   getEnvInt64("MAX_VIDEO_BYTES", 200<<20),
		},
		Cache: CacheConfig{
			Enabled: getEnvBool("CACHE_ENABLED", true),
			Type:    getEnv("CACHE_TYPE", "memory"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnvBool("RATE_LIMIT_ENABLED", false),
			GlobalLimit:   getEnvInt64("RATE_LIMIT_GLOBAL", 30),
			ClientLimit:   getEnvInt64("RATE_LIMIT_CLIENT", 5),
			WindowSeconds: getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		},
		Telemetry: TelemetryConfig{
			EnablePprof: getEnvBool("ENABLE_PPROF", false),
			PprofPort:   getEnvInt("PPROF_PORT", 6060),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	switch c.Storage.MetadataBackend {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required for the postgres metadata backend")
		}
		if c.Database.MaxConns < c.Database.MinConns {
			return fmt.Errorf("max_conns must be >= min_conns")
		}
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite metadata backend")
		}
	default:
		return fmt.Errorf("unknown metadata backend: %s (choose: postgres, sqlite)", c.Storage.MetadataBackend)
	}

	switch c.Storage.BlobBackend {
	case "s3":
		if c.Storage.S3Endpoint == "" || c.Storage.S3Bucket == "" ||
			c.Storage.S3AccessKey == "" || c.Storage.S3SecretKey == "" {
			return fmt.Errorf("R2_ENDPOINT_URL, R2_BUCKET_NAME, R2_ACCESS_KEY_ID and R2_SECRET_ACCESS_KEY are required for the s3 blob backend")
		}
	case "fs":
		if c.Storage.FSDir == "" {
			return fmt.Errorf("LOCAL_CACHE_DIR is required for the fs blob backend")
		}
	default:
		return fmt.Errorf("unknown blob backend: %s (choose: s3, fs)", c.Storage.BlobBackend)
	}

	if c.Scraper.Timeout <= 0 {
		return fmt.Errorf("scraper timeout must be positive")
	}

	return nil
}

// UsesPostgres reports whether the metadata backend needs a Postgres pool
func (c *Config) UsesPostgres() bool {
	return c.Storage.MetadataBackend == "postgres"
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// RedisAddr returns the host:port address for the Redis client
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
