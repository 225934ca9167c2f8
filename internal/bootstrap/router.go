package bootstrap

import (
	"log"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openbootdotdev/openboot.dev/internal/auth"
	"github.com/openbootdotdev/openboot.dev/internal/config"
	"github.com/openbootdotdev/openboot.dev/internal/metrics"
	"github.com/openbootdotdev/openboot.dev/internal/middleware"
)

// setupRouter configures the Gin router with all routes and middleware
func setupRouter(
	cfg *config.Config,
	h handlerSet,
	sessionManager *auth.SessionManager,
	recorder metrics.Recorder,
	rateLimiterFactory *middleware.RateLimiterFactory,
) *gin.Engine {
	setupGinMode(cfg)
	r := gin.New()

	r.Use(metrics.HTTPMetricsMiddleware(recorder))
	r.Use(gin.Logger(), gin.Recovery())

	// Health check endpoint
	r.GET("/health", h.health.Health)

	// Prometheus metrics endpoint
	setupMetricsEndpoint(r, cfg)

	// Rate limiting
	rateLimiters := setupRateLimiting(cfg, rateLimiterFactory)

	setupAllRoutes(r, cfg, h, sessionManager, rateLimiters)

	logServerStartup(cfg)

	return r
}

func setupGinMode(cfg *config.Config) {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}
}

// newStateSessionMiddleware configures the short-lived cookie session that
// carries OAuth state between login and callback. Separate from the signed
// session cookie that represents a login.
func newStateSessionMiddleware(cfg *config.Config) gin.HandlerFunc {
	store := cookie.NewStore([]byte(cfg.StateSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   cfg.IsProduction,
		SameSite: http.SameSiteLaxMode,
	})
	return sessions.Sessions("openboot_oauth", store)
}

// setupMetricsEndpoint configures the Prometheus metrics endpoint
func setupMetricsEndpoint(r *gin.Engine, cfg *config.Config) {
	switch {
	case !cfg.MetricsEnabled:
		log.Printf("Prometheus metrics disabled")
	case cfg.MetricsToken != "":
		log.Printf("Prometheus metrics enabled at /metrics with Bearer token authentication")
		r.GET(
			"/metrics",
			middleware.MetricsAuth(cfg.MetricsToken),
			gin.WrapH(promhttp.Handler()),
		)
	default:
		log.Printf("Prometheus metrics enabled at /metrics (no authentication)")
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

// setupAllRoutes configures all application routes
func setupAllRoutes(
	r *gin.Engine,
	cfg *config.Config,
	h handlerSet,
	sessionManager *auth.SessionManager,
	rateLimiters rateLimitMiddlewares,
) {
	api := r.Group("/api")

	// Browser OAuth login
	authRoutes := api.Group("/auth", newStateSessionMiddleware(cfg))
	{
		authRoutes.GET("/login/:provider", rateLimiters.auth, h.oauth.Login)
		authRoutes.GET("/callback/:provider", rateLimiters.auth, h.oauth.Callback)
		authRoutes.POST("/logout", h.oauth.Logout)
	}

	// CLI device authorization flow
	cli := api.Group("/auth/cli")
	{
		cli.POST("/start", rateLimiters.cliStart, h.cliAuth.Start)
		cli.GET("/poll", rateLimiters.cliPoll, h.cliAuth.Poll)
		cli.POST(
			"/approve",
			rateLimiters.cliApprove,
			middleware.RequireSession(sessionManager),
			h.cliAuth.Approve,
		)
	}

	// Current user
	api.GET("/user", middleware.RequireSession(sessionManager), h.user.Me)

	// Config management and public reads
	configs := api.Group("/configs")
	{
		configs.GET("/public", h.configs.Public)
		configs.GET("/alias/:alias", middleware.Identity(sessionManager), h.configs.Alias)

		owned := configs.Group("", rateLimiters.configs, middleware.RequireSession(sessionManager))
		{
			owned.GET("", h.configs.List)
			owned.POST("", h.configs.Create)
			owned.GET("/:slug", h.configs.Get)
			owned.PUT("/:slug", h.configs.Update)
			owned.DELETE("/:slug", h.configs.Delete)
		}
	}

	// Editor tools
	api.POST("/brewfile/parse", rateLimiters.search, h.tools.ParseBrewfile)
	api.GET("/homebrew/search", rateLimiters.search, h.tools.SearchHomebrew)
	api.GET("/npm/search", rateLimiters.search, h.tools.SearchNpm)

	// Generic CLI installer
	r.GET("/install", h.install.InstallerRedirect)

	// Install surfaces under the username wildcard. The bare /:username route
	// doubles as the alias short URL.
	public := r.Group("", middleware.Identity(sessionManager))
	{
		public.GET("/:username", h.install.AliasScript)
		public.GET("/:username/:slug/install", h.install.Script)
		public.GET("/:username/:slug/config", h.install.ConfigJSON)
	}
}

// logServerStartup logs server startup information
func logServerStartup(cfg *config.Config) {
	log.Printf("Server starting on %s (base URL: %s)", cfg.ServerAddr, cfg.BaseURL)
}
