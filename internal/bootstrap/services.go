package bootstrap

import (
	"github.com/openbootdotdev/openboot.dev/internal/config"
	"github.com/openbootdotdev/openboot.dev/internal/services"
	"github.com/openbootdotdev/openboot.dev/internal/store"
)

// initializeServices creates all business logic services
func initializeServices(
	cfg *config.Config,
	db *store.Store,
) (*services.TokenService, *services.CLIAuthService, *services.UserService, *services.ConfigService, *services.AccessService) {
	tokenService := services.NewTokenService(db, cfg)
	cliAuthService := services.NewCLIAuthService(db, cfg, tokenService)
	userService := services.NewUserService(db)
	configService := services.NewConfigService(db, cfg)
	accessService := services.NewAccessService(db)

	return tokenService, cliAuthService, userService, configService, accessService
}
