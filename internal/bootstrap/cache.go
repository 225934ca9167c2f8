package bootstrap

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/openbootdotdev/openboot.dev/internal/cache"
	"github.com/openbootdotdev/openboot.dev/internal/config"
	"github.com/openbootdotdev/openboot.dev/internal/metrics"
	"github.com/openbootdotdev/openboot.dev/internal/registry"
	"github.com/openbootdotdev/openboot.dev/internal/retry"
)

const cacheInitTimeout = 10 * time.Second

// initializeMetrics initializes Prometheus metrics
func initializeMetrics(cfg *config.Config) metrics.Recorder {
	recorder := metrics.Init(cfg.MetricsEnabled)
	if cfg.MetricsEnabled {
		log.Println("Prometheus metrics initialized")
	} else {
		log.Println("Metrics disabled (using noop implementation)")
	}
	return recorder
}

// initializeMetricsCache initializes the count cache behind the gauge updater.
// Shares the search cache backend selection: memory unless Redis is configured.
func initializeMetricsCache(cfg *config.Config) (cache.Cache[int64], error) {
	if !cfg.MetricsEnabled {
		return nil, nil
	}

	if cfg.SearchCacheType == config.CacheTypeRedis {
		ctx, cancel := context.WithTimeout(context.Background(), cacheInitTimeout)
		defer cancel()

		c, err := cache.NewRueidisCache[int64](
			ctx,
			cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			"openboot:",
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis metrics cache: %w", err)
		}
		log.Printf("Metrics cache: redis (addr=%s, db=%d)", cfg.RedisAddr, cfg.RedisDB)
		return c, nil
	}

	log.Println("Metrics cache: memory (single instance only)")
	return cache.NewMemoryCache[int64](), nil
}

// initializeRegistry wires the package search service with its caches. The
// returned closer shuts down the Redis-backed caches, and is a no-op for the
// in-memory default.
func initializeRegistry(cfg *config.Config) (*registry.Service, func() error) {
	client := retry.NewClient(
		retry.WithMaxRetries(cfg.RegistryMaxRetries),
		retry.WithHTTPClient(newRegistryHTTPClient(cfg)),
	)

	opts := registry.Options{
		Client:      client,
		HomebrewTTL: cfg.HomebrewIndexCacheTTL,
		NpmTTL:      cfg.NpmSearchCacheTTL,
	}

	if cfg.SearchCacheType != config.CacheTypeRedis {
		log.Println("Search cache: memory (single instance only)")
		return registry.NewService(opts), func() error { return nil }
	}

	ctx, cancel := context.WithTimeout(context.Background(), cacheInitTimeout)
	defer cancel()

	homebrewCache, err := cache.NewRueidisCache[registry.HomebrewIndex](
		ctx,
		cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
		"openboot:search:homebrew:",
	)
	if err != nil {
		log.Printf("Search cache: redis unavailable (%v), falling back to memory", err)
		return registry.NewService(opts), func() error { return nil }
	}

	npmCache, err := cache.NewRueidisCache[[]registry.SearchResult](
		ctx,
		cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
		"openboot:search:npm:",
	)
	if err != nil {
		log.Printf("Search cache: redis unavailable (%v), falling back to memory", err)
		_ = homebrewCache.Close()
		return registry.NewService(opts), func() error { return nil }
	}

	log.Printf("Search cache: redis (addr=%s, db=%d)", cfg.RedisAddr, cfg.RedisDB)
	opts.HomebrewCache = homebrewCache
	opts.NpmCache = npmCache

	closer := func() error {
		_ = homebrewCache.Close()
		return npmCache.Close()
	}
	return registry.NewService(opts), closer
}

func newRegistryHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.RegistryRequestTimeout}
}
