package bootstrap

import (
	"fmt"
	"log"

	"github.com/openbootdotdev/openboot.dev/internal/config"
	"github.com/openbootdotdev/openboot.dev/internal/middleware"
)

// initializeRateLimiterFactory builds the per-endpoint rate limiter factory.
// Returns nil when rate limiting is disabled. The Redis backend connects up
// front so a bad address fails at startup, not on the first limited request.
func initializeRateLimiterFactory(cfg *config.Config) (*middleware.RateLimiterFactory, error) {
	if !cfg.EnableRateLimit {
		log.Println("Rate limiting disabled")
		return nil, nil
	}

	if cfg.RateLimitStore != config.RateLimitStoreRedis {
		log.Println("Rate limiting enabled (store: memory, single instance only)")
		return middleware.NewMemoryRateLimiterFactory(), nil
	}

	factory, err := middleware.NewRateLimiterFactory(middleware.RateLimitConfig{
		StoreType:     middleware.RateLimitStoreRedis,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize rate limiting: %w", err)
	}

	log.Printf("Rate limiting enabled (store: redis, addr=%s, db=%d)", cfg.RedisAddr, cfg.RedisDB)
	return factory, nil
}
