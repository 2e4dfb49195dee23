package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/johnrirwin/rightswatch/internal/aggregator"
	"github.com/johnrirwin/rightswatch/internal/cache"
	"github.com/johnrirwin/rightswatch/internal/config"
	"github.com/johnrirwin/rightswatch/internal/health"
	"github.com/johnrirwin/rightswatch/internal/httpapi"
	"github.com/johnrirwin/rightswatch/internal/logging"
	"github.com/johnrirwin/rightswatch/internal/mcp"
	"github.com/johnrirwin/rightswatch/internal/metrics"
	"github.com/johnrirwin/rightswatch/internal/ratelimit"
	"github.com/johnrirwin/rightswatch/internal/sources"
)

// App holds all application dependencies
type App struct {
	Config     *config.Config
	Logger     *logging.Logger
	Cache      cache.Cache
	Metrics    *metrics.Metrics
	Feeds      *sources.FeedsConfig
	Tracker    *health.Tracker
	Checker    *health.Checker
	Aggregator *aggregator.Aggregator
	HTTPServer *httpapi.Server
	MCPServer  *mcp.Server
}

// New creates and initializes a new App instance
func New(cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	app.Logger = logging.New(logging.ParseLevel(cfg.Logging.Level))
	app.Cache = app.initCache()
	app.Metrics = metrics.New()

	feeds, err := app.initFeeds()
	if err != nil {
		_ = app.Shutdown(context.Background())
		return nil, err
	}
	app.Feeds = feeds

	limiter := ratelimit.New(cfg.Feeds.RateLimit)
	fetcher := app.initFetcher(limiter)

	app.Tracker = health.NewTracker(app.Cache)
	app.Checker = health.NewChecker(app.Tracker, health.Config{
		Timeout:        cfg.Health.Timeout,
		SlowThreshold:  cfg.Health.SlowThreshold,
		UserAgent:      cfg.Feeds.UserAgent,
		MaxConcurrency: cfg.Feeds.MaxConcurrency,
	}, app.Metrics, app.Logger)

	app.Aggregator = aggregator.New(fetcher, feeds.Sources, aggregator.Config{
		AggregateTimeout: cfg.Feeds.AggregateTimeout,
		FeedTimeout:      cfg.Feeds.FeedTimeout,
		MaxConcurrency:   cfg.Feeds.MaxConcurrency,
	}, app.Tracker, app.Metrics, app.Logger)

	app.initServers(os.Stdin, os.Stdout)

	return app, nil
}

// Run starts the application in the configured mode and blocks until ctx is
// cancelled or the server stops.
func (a *App) Run(ctx context.Context) error {
	if a.Config.Server.MCPMode {
		return a.runMCPMode(ctx)
	}
	return a.runHTTPMode(ctx)
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error("HTTP server shutdown error", logging.WithField("error", err.Error()))
		}
	}

	switch c := a.Cache.(type) {
	case *cache.RedisCache:
		if err := c.Close(); err != nil {
			a.Logger.Error("Redis close error", logging.WithField("error", err.Error()))
		}
	case *cache.MemoryCache:
		c.Stop()
	}

	return nil
}

func (a *App) initCache() cache.Cache {
	switch a.Config.Cache.Backend {
	case "redis":
		a.Logger.Info("Using Redis cache backend", logging.WithField("addr", a.Config.Cache.RedisAddr))
		redisCache, err := cache.NewRedis(cache.RedisConfig{
			Addr: a.Config.Cache.RedisAddr,
		}, a.Config.Cache.TTL)
		if err != nil {
			a.Logger.Error("Failed to connect to Redis, falling back to memory cache", logging.WithField("error", err.Error()))
			return cache.NewMemory(a.Config.Cache.TTL)
		}
		return redisCache
	default:
		a.Logger.Info("Using in-memory cache backend")
		return cache.NewMemory(a.Config.Cache.TTL)
	}
}

// initFeeds loads the source list. An explicitly configured path must load;
// otherwise a missing or broken feeds.json falls back to the built-in list.
func (a *App) initFeeds() (*sources.FeedsConfig, error) {
	explicit := a.Config.Feeds.SourcesPath
	configPath := sources.FindFeedsConfig(explicit)

	if configPath == "" {
		if explicit != "" {
			return nil, fmt.Errorf("feeds config %s not found", explicit)
		}
		a.Logger.Info("No feeds.json found, using default sources")
		return sources.GetDefaultFeedsConfig(), nil
	}

	feedsConfig, err := sources.LoadFeedsConfig(configPath)
	if err != nil {
		if explicit != "" {
			return nil, err
		}
		a.Logger.Warn("Failed to load feeds config, using defaults", logging.WithFields(map[string]interface{}{
			"path":  configPath,
			"error": err.Error(),
		}))
		return sources.GetDefaultFeedsConfig(), nil
	}

	a.Logger.Info("Loaded feeds configuration", logging.WithFields(map[string]interface{}{
		"path":    configPath,
		"sources": len(feedsConfig.Sources),
		"enabled": len(feedsConfig.Enabled()),
	}))
	return feedsConfig, nil
}

func (a *App) initFetcher(limiter *ratelimit.Limiter) sources.Fetcher {
	fetcherConfig := sources.FetcherConfig{
		Timeout:          a.Config.Feeds.FeedTimeout,
		MaxItems:         a.Config.Feeds.MaxItems,
		DescriptionLimit: a.Config.Feeds.DescriptionLimit,
		UserAgent:        a.Config.Feeds.UserAgent,
	}

	if a.Config.Feeds.Mode == config.FeedModeDirect {
		a.Logger.Info("Fetching feeds directly")
		return sources.NewRSSFetcher(limiter, fetcherConfig)
	}

	a.Logger.Info("Fetching feeds through proxy", logging.WithField("endpoint", a.Config.Feeds.ProxyEndpoint))
	return sources.NewProxyFetcher(a.Config.Feeds.ProxyEndpoint, a.Config.Feeds.ProxyAPIKey, limiter, fetcherConfig)
}

func (a *App) initServers(in io.Reader, out io.Writer) {
	a.HTTPServer = httpapi.New(a.Aggregator, a.Checker, a.Metrics, a.Logger)

	mcpHandler := mcp.NewHandler(a.Aggregator, a.Checker, a.Logger)
	a.MCPServer = mcp.NewServer(mcpHandler, in, out, a.Logger)
}

func (a *App) runMCPMode(ctx context.Context) error {
	a.Logger.Info("Starting MCP server in stdio mode")

	err := a.MCPServer.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) runHTTPMode(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.HTTPServer.Start(a.Config.Server.HTTPAddr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		return nil
	}
}
