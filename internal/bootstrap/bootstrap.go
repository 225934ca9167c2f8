package bootstrap

import (
	"log"
	"net/http"

	"github.com/appleboy/graceful"
	"github.com/gin-gonic/gin"

	"github.com/openbootdotdev/openboot.dev/internal/auth"
	"github.com/openbootdotdev/openboot.dev/internal/cache"
	"github.com/openbootdotdev/openboot.dev/internal/config"
	"github.com/openbootdotdev/openboot.dev/internal/metrics"
	"github.com/openbootdotdev/openboot.dev/internal/middleware"
	"github.com/openbootdotdev/openboot.dev/internal/registry"
	"github.com/openbootdotdev/openboot.dev/internal/services"
	"github.com/openbootdotdev/openboot.dev/internal/store"
)

// Application holds all initialized components
type Application struct {
	Config *config.Config

	// Core infrastructure
	DB                *store.Store
	MetricsRecorder   metrics.Recorder
	MetricsCache      cache.Cache[int64]
	RateLimiters      *middleware.RateLimiterFactory
	Sessions          *auth.SessionManager
	searchCacheCloser func() error

	// Services
	TokenService   *services.TokenService
	CLIAuthService *services.CLIAuthService
	UserService    *services.UserService
	ConfigService  *services.ConfigService
	AccessService  *services.AccessService
	Registry       *registry.Service

	// HTTP
	HandlerSet handlerSet
	Router     *gin.Engine
	Server     *http.Server
}

// Run initializes and starts the application
func Run(cfg *config.Config) error {
	app := &Application{Config: cfg}

	// Phase 1: Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Phase 2: Initialize infrastructure
	if err := app.initializeInfrastructure(); err != nil {
		return err
	}

	// Phase 3: Initialize business layer
	app.initializeBusinessLayer()

	// Phase 4: Initialize HTTP layer
	app.initializeHTTPLayer()

	// Phase 5: Start server with graceful shutdown
	app.startWithGracefulShutdown()

	return nil
}

// initializeInfrastructure sets up database, metrics, caches, and rate limiting
func (app *Application) initializeInfrastructure() error {
	var err error

	// Database
	app.DB, err = initializeDatabase(app.Config)
	if err != nil {
		return err
	}

	// Metrics
	app.MetricsRecorder = initializeMetrics(app.Config)
	app.MetricsCache, err = initializeMetricsCache(app.Config)
	if err != nil {
		return err
	}

	// Rate limiting
	app.RateLimiters, err = initializeRateLimiterFactory(app.Config)
	if err != nil {
		return err
	}

	return nil
}

// initializeBusinessLayer sets up services
func (app *Application) initializeBusinessLayer() {
	app.Sessions = auth.NewSessionManager(app.Config.SessionSecret, app.Config.SessionMaxAge)

	app.TokenService,
		app.CLIAuthService,
		app.UserService,
		app.ConfigService,
		app.AccessService = initializeServices(app.Config, app.DB)

	app.Registry, app.searchCacheCloser = initializeRegistry(app.Config)
}

// initializeHTTPLayer sets up handlers, router, and server
func (app *Application) initializeHTTPLayer() {
	// OAuth setup
	oauthProviders := initializeOAuthProviders(app.Config)
	logOAuthProvidersStatus(oauthProviders)
	oauthHTTPClient := createOAuthHTTPClient(app.Config)

	// Handlers
	app.HandlerSet = initializeHandlers(
		app.Config,
		app.DB,
		app.CLIAuthService,
		app.UserService,
		app.ConfigService,
		app.AccessService,
		app.Registry,
		oauthProviders,
		oauthHTTPClient,
		app.Sessions,
		app.MetricsRecorder,
	)

	// Router
	app.Router = setupRouter(
		app.Config,
		app.HandlerSet,
		app.Sessions,
		app.MetricsRecorder,
		app.RateLimiters,
	)

	// HTTP Server
	app.Server = createHTTPServer(app.Config, app.Router)
}

// startWithGracefulShutdown starts the server and handles graceful shutdown
func (app *Application) startWithGracefulShutdown() {
	m := graceful.NewManager()

	addServerRunningJob(m, app.Server)
	addServerShutdownJob(m, app.Server)
	addReaperJob(m, app.Config, app.DB)
	addMetricsGaugeUpdateJob(m, app.Config, app.DB, app.MetricsRecorder, app.MetricsCache)
	addRateLimiterShutdownJob(m, app.RateLimiters)
	addCacheCleanupJob(m, app.searchCacheCloser)
	if app.MetricsCache != nil {
		addCacheCleanupJob(m, app.MetricsCache.Close)
	}

	<-m.Done()
}
