package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterRedis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// RateLimitStoreType defines the type of rate limit store
type RateLimitStoreType string

const (
	// RateLimitStoreMemory uses in-memory storage (single instance only)
	RateLimitStoreMemory RateLimitStoreType = "memory"
	// RateLimitStoreRedis uses Redis storage (distributed, multi-pod support)
	RateLimitStoreRedis RateLimitStoreType = "redis"
)

// RateLimitConfig holds the backend configuration for rate limiting
type RateLimitConfig struct {
	StoreType       RateLimitStoreType
	CleanupInterval time.Duration

	// Redis settings (only used when StoreType = "redis")
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// RateLimiterFactory builds per-endpoint rate limiters. Each named limiter
// gets its own key namespace so the CLI poll budget and the browser budget
// cannot eat into each other, while Redis deployments share one connection.
type RateLimiterFactory struct {
	config RateLimitConfig
	client *redis.Client
}

// NewRateLimiterFactory creates the factory, connecting to Redis up front
// when that backend is selected so misconfiguration fails at startup.
func NewRateLimiterFactory(config RateLimitConfig) (*RateLimiterFactory, error) {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}

	f := &RateLimiterFactory{config: config}

	if config.StoreType == RateLimitStoreRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     config.RedisAddr,
			Password: config.RedisPassword,
			DB:       config.RedisDB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to Redis at %s: %w", config.RedisAddr, err)
		}
		f.client = client
	}

	return f, nil
}

// NewMemoryRateLimiterFactory creates an in-memory factory (single instance)
func NewMemoryRateLimiterFactory() *RateLimiterFactory {
	return &RateLimiterFactory{config: RateLimitConfig{
		StoreType:       RateLimitStoreMemory,
		CleanupInterval: 5 * time.Minute,
	}}
}

// Close releases the Redis connection, if the factory holds one.
func (f *RateLimiterFactory) Close() error {
	if f.client == nil {
		return nil
	}
	return f.client.Close()
}

// PerMinute returns a gin middleware limiting each client IP to the given
// number of requests per minute within the named budget.
func (f *RateLimiterFactory) PerMinute(name string, requestsPerMinute int) (gin.HandlerFunc, error) {
	rate := limiter.Rate{
		Period: 1 * time.Minute,
		Limit:  int64(requestsPerMinute),
	}

	var store limiter.Store
	if f.client != nil {
		var err error
		store, err = limiterRedis.NewStoreWithOptions(f.client, limiter.StoreOptions{
			Prefix:          "ratelimit:" + name,
			CleanUpInterval: f.config.CleanupInterval,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis store: %w", err)
		}
	} else {
		store = memory.NewStore()
	}

	instance := limiter.New(store, rate)

	return mgin.NewMiddleware(instance, mgin.WithLimitReachedHandler(func(c *gin.Context) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":             "rate_limit_exceeded",
			"error_description": "Too many requests. Please try again later.",
		})
		c.Abort()
	})), nil
}
