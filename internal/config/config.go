package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/subosito/gotenv"
)

const (
	FeedModeProxy  = "proxy"
	FeedModeDirect = "direct"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Cache   CacheConfig
	Logging LoggingConfig
	Feeds   FeedsConfig
	Health  HealthConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	HTTPAddr string
	MCPMode  bool
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	Backend   string // "memory" or "redis"
	TTL       time.Duration
	RedisAddr string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// FeedsConfig controls how feeds are fetched and merged
type FeedsConfig struct {
	Mode             string // "proxy" or "direct"
	ProxyEndpoint    string
	ProxyAPIKey      string
	SourcesPath      string
	FeedTimeout      time.Duration
	AggregateTimeout time.Duration
	MaxItems         int
	MaxConcurrency   int
	DescriptionLimit int
	RateLimit        time.Duration
	UserAgent        string
}

// HealthConfig holds feed health check settings
type HealthConfig struct {
	Timeout       time.Duration
	SlowThreshold time.Duration
}

// Load reads an optional .env file, parses flags and applies environment overrides.
func Load() *Config {
	// .env is optional; the OS environment is used as-is when it is missing.
	_ = gotenv.Load(getEnvOrDefault("ENV_FILE", ".env"))

	httpAddr := flag.String("http", ":8080", "HTTP server address")
	mcpMode := flag.Bool("mcp", false, "Run in MCP stdio mode")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	cacheBackend := flag.String("cache-backend", "memory", "Cache backend for feed health: memory or redis")
	cacheTTL := flag.Duration("cache-ttl", 24*time.Hour, "TTL for feed health records")
	redisAddr := flag.String("redis-addr", "localhost:6379", "Redis server address")
	feedMode := flag.String("feed-mode", FeedModeProxy, "Feed fetch mode: proxy (feed-to-JSON endpoint) or direct (parse RSS)")
	proxyEndpoint := flag.String("proxy-endpoint", "https://api.rss2json.com/v1/api.json", "Feed-to-JSON conversion endpoint")
	sourcesPath := flag.String("feeds-config", "", "Path to feeds.json (searched in common locations when empty)")
	feedTimeout := flag.Duration("feed-timeout", 10*time.Second, "Deadline for a single feed fetch")
	aggregateTimeout := flag.Duration("aggregate-timeout", 15*time.Second, "Deadline for a whole aggregation run")
	maxItems := flag.Int("max-items", 5, "Maximum items taken from each feed")
	maxConcurrency := flag.Int("max-concurrency", 8, "Maximum feeds fetched at once")
	descLimit := flag.Int("description-limit", 200, "Description length before truncation")
	rateLimit := flag.Duration("rate-limit", 0, "Minimum delay between requests to the same host")
	healthTimeout := flag.Duration("health-timeout", 5*time.Second, "Deadline for a single feed health check")
	slowThreshold := flag.Duration("health-slow", 2*time.Second, "Latency above which a feed is reported degraded")

	flag.Parse()

	cfg := &Config{
		Server:  ServerConfig{HTTPAddr: *httpAddr, MCPMode: *mcpMode},
		Logging: LoggingConfig{Level: *logLevel},
		Cache: CacheConfig{
			Backend:   *cacheBackend,
			TTL:       *cacheTTL,
			RedisAddr: *redisAddr,
		},
		Feeds: FeedsConfig{
			Mode:             *feedMode,
			ProxyEndpoint:    *proxyEndpoint,
			SourcesPath:      *sourcesPath,
			FeedTimeout:      *feedTimeout,
			AggregateTimeout: *aggregateTimeout,
			MaxItems:         *maxItems,
			MaxConcurrency:   *maxConcurrency,
			DescriptionLimit: *descLimit,
			RateLimit:        *rateLimit,
			UserAgent:        "RightsWatch/1.0",
		},
		Health: HealthConfig{
			Timeout:       *healthTimeout,
			SlowThreshold: *slowThreshold,
		},
	}

	applyEnvOverrides(cfg)
	normalize(cfg)

	return cfg
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.Server.HTTPAddr = v
	}
	if v := os.Getenv("MCP_MODE"); v == "true" || v == "1" {
		cfg.Server.MCPMode = true
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	overrideDuration("CACHE_TTL", &cfg.Cache.TTL)
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}

	if v := os.Getenv("FEED_MODE"); v != "" {
		cfg.Feeds.Mode = strings.ToLower(v)
	}
	if v := os.Getenv("FEED_PROXY_ENDPOINT"); v != "" {
		cfg.Feeds.ProxyEndpoint = v
	}
	cfg.Feeds.ProxyAPIKey = os.Getenv("FEED_PROXY_API_KEY")
	if v := os.Getenv("FEEDS_CONFIG_PATH"); v != "" {
		cfg.Feeds.SourcesPath = v
	}
	overrideDuration("FEED_TIMEOUT", &cfg.Feeds.FeedTimeout)
	overrideDuration("AGGREGATE_TIMEOUT", &cfg.Feeds.AggregateTimeout)
	overrideInt("FEED_MAX_ITEMS", &cfg.Feeds.MaxItems)
	overrideInt("FEED_MAX_CONCURRENCY", &cfg.Feeds.MaxConcurrency)
	overrideInt("FEED_DESCRIPTION_LIMIT", &cfg.Feeds.DescriptionLimit)
	overrideDuration("RATE_LIMIT", &cfg.Feeds.RateLimit)
	cfg.Feeds.UserAgent = getEnvOrDefault("FEED_USER_AGENT", cfg.Feeds.UserAgent)

	overrideDuration("HEALTH_TIMEOUT", &cfg.Health.Timeout)
	overrideDuration("HEALTH_SLOW_THRESHOLD", &cfg.Health.SlowThreshold)
}

// normalize resets values that would break the pipeline to their defaults.
func normalize(cfg *Config) {
	if cfg.Feeds.Mode != FeedModeDirect {
		cfg.Feeds.Mode = FeedModeProxy
	}
	if cfg.Feeds.MaxItems <= 0 {
		cfg.Feeds.MaxItems = 5
	}
	if cfg.Feeds.MaxConcurrency <= 0 {
		cfg.Feeds.MaxConcurrency = 8
	}
	if cfg.Feeds.DescriptionLimit <= 0 {
		cfg.Feeds.DescriptionLimit = 200
	}
	if cfg.Feeds.AggregateTimeout <= 0 {
		cfg.Feeds.AggregateTimeout = 15 * time.Second
	}
	if cfg.Feeds.FeedTimeout <= 0 || cfg.Feeds.FeedTimeout > cfg.Feeds.AggregateTimeout {
		cfg.Feeds.FeedTimeout = cfg.Feeds.AggregateTimeout
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func overrideDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func overrideInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
