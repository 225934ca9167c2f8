package bootstrap

import (
	"net/http"

	"github.com/openbootdotdev/openboot.dev/internal/auth"
	"github.com/openbootdotdev/openboot.dev/internal/config"
	"github.com/openbootdotdev/openboot.dev/internal/handlers"
	"github.com/openbootdotdev/openboot.dev/internal/metrics"
	"github.com/openbootdotdev/openboot.dev/internal/registry"
	"github.com/openbootdotdev/openboot.dev/internal/services"
	"github.com/openbootdotdev/openboot.dev/internal/store"
)

// handlerSet holds all HTTP handlers
type handlerSet struct {
	cliAuth *handlers.CLIAuthHandler
	oauth   *handlers.OAuthHandler
	user    *handlers.UserHandler
	configs *handlers.ConfigHandler
	install *handlers.InstallHandler
	tools   *handlers.ToolsHandler
	health  *handlers.HealthHandler
}

// initializeHandlers creates all HTTP handlers
func initializeHandlers(
	cfg *config.Config,
	db *store.Store,
	cliAuthService *services.CLIAuthService,
	userService *services.UserService,
	configService *services.ConfigService,
	accessService *services.AccessService,
	registryService *registry.Service,
	oauthProviders map[string]*auth.OAuthProvider,
	oauthHTTPClient *http.Client,
	sessions *auth.SessionManager,
	recorder metrics.Recorder,
) handlerSet {
	return handlerSet{
		cliAuth: handlers.NewCLIAuthHandler(cliAuthService, cfg, recorder),
		oauth: handlers.NewOAuthHandler(
			oauthProviders,
			userService,
			sessions,
			oauthHTTPClient,
			cfg,
			recorder,
		),
		user:    handlers.NewUserHandler(userService),
		configs: handlers.NewConfigHandler(configService, accessService, cfg, recorder),
		install: handlers.NewInstallHandler(configService, accessService, cfg, recorder),
		tools:   handlers.NewToolsHandler(registryService, recorder),
		health:  handlers.NewHealthHandler(db),
	}
}
