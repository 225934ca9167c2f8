package bootstrap

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/openbootdotdev/openboot.dev/internal/config"
	"github.com/openbootdotdev/openboot.dev/internal/middleware"
)

// rateLimitMiddlewares holds rate limiting middlewares for different endpoints
type rateLimitMiddlewares struct {
	cliStart   gin.HandlerFunc
	cliApprove gin.HandlerFunc
	cliPoll    gin.HandlerFunc
	auth       gin.HandlerFunc
	configs    gin.HandlerFunc
	search     gin.HandlerFunc
}

// setupRateLimiting builds the per-endpoint limiters. Each endpoint gets its
// own named budget: a CLI stuck in a poll loop must not lock its owner out of
// the approve endpoint.
func setupRateLimiting(
	cfg *config.Config,
	factory *middleware.RateLimiterFactory,
) rateLimitMiddlewares {
	noOpMiddleware := func(c *gin.Context) { c.Next() }
	if factory == nil {
		return rateLimitMiddlewares{
			cliStart:   noOpMiddleware,
			cliApprove: noOpMiddleware,
			cliPoll:    noOpMiddleware,
			auth:       noOpMiddleware,
			configs:    noOpMiddleware,
			search:     noOpMiddleware,
		}
	}

	createLimiter := func(name string, requestsPerMinute int) gin.HandlerFunc {
		limiter, err := factory.PerMinute(name, requestsPerMinute)
		if err != nil {
			log.Fatalf("Failed to create rate limiter for %s: %v", name, err)
		}
		return limiter
	}

	return rateLimitMiddlewares{
		cliStart:   createLimiter("cli-start", cfg.CLIStartRateLimit),
		cliApprove: createLimiter("cli-approve", cfg.CLIApproveRateLimit),
		cliPoll:    createLimiter("cli-poll", cfg.CLIPollRateLimit),
		auth:       createLimiter("auth", cfg.AuthRateLimit),
		configs:    createLimiter("configs", cfg.ConfigRateLimit),
		search:     createLimiter("search", cfg.SearchRateLimit),
	}
}
