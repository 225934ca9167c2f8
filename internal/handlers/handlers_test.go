package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/openbootdotdev/openboot.dev/internal/auth"
	"github.com/openbootdotdev/openboot.dev/internal/config"
	"github.com/openbootdotdev/openboot.dev/internal/metrics"
	"github.com/openbootdotdev/openboot.dev/internal/middleware"
	"github.com/openbootdotdev/openboot.dev/internal/models"
	"github.com/openbootdotdev/openboot.dev/internal/services"
	"github.com/openbootdotdev/openboot.dev/internal/store"
)

// testEnv wires real services over an in-memory store behind the same route
// shapes the production router uses.
type testEnv struct {
	store    *store.Store
	cfg      *config.Config
	sessions *auth.SessionManager
	tokens   *services.TokenService
	cliAuth  *services.CLIAuthService
	users    *services.UserService
	configs  *services.ConfigService
	access   *services.AccessService
	router   *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.New("sqlite", ":memory:")
	require.NoError(t, err)

	cfg := &config.Config{
		BaseURL:               "http://localhost:8080",
		SessionSecret:         "test-session-secret",
		SessionMaxAge:         time.Hour,
		CLIAuthCodeExpiration: 10 * time.Minute,
		APITokenExpiration:    90 * 24 * time.Hour,
		MaxConfigsPerUser:     3,
	}

	env := &testEnv{
		store:    st,
		cfg:      cfg,
		sessions: auth.NewSessionManager(cfg.SessionSecret, cfg.SessionMaxAge),
		tokens:   services.NewTokenService(st, cfg),
		users:    services.NewUserService(st),
		configs:  services.NewConfigService(st, cfg),
		access:   services.NewAccessService(st),
	}
	env.cliAuth = services.NewCLIAuthService(st, cfg, env.tokens)

	m := metrics.NewNoopMetrics()
	cliAuthHandler := NewCLIAuthHandler(env.cliAuth, cfg, m)
	userHandler := NewUserHandler(env.users)
	configHandler := NewConfigHandler(env.configs, env.access, cfg, m)
	installHandler := NewInstallHandler(env.configs, env.access, cfg, m)
	healthHandler := NewHealthHandler(st)

	r := gin.New()

	api := r.Group("/api")
	api.POST("/auth/cli/start", cliAuthHandler.Start)
	api.GET("/auth/cli/poll", cliAuthHandler.Poll)
	api.POST("/auth/cli/approve", middleware.RequireSession(env.sessions), cliAuthHandler.Approve)
	api.GET("/user", middleware.RequireSession(env.sessions), userHandler.Me)

	configsAPI := api.Group("/configs")
	configsAPI.GET("/public", configHandler.Public)
	configsAPI.GET("/alias/:alias", middleware.Identity(env.sessions), configHandler.Alias)
	owned := configsAPI.Group("", middleware.RequireSession(env.sessions))
	owned.GET("", configHandler.List)
	owned.POST("", configHandler.Create)
	owned.GET("/:slug", configHandler.Get)
	owned.PUT("/:slug", configHandler.Update)
	owned.DELETE("/:slug", configHandler.Delete)

	r.GET("/health", healthHandler.Health)
	r.GET("/install", installHandler.InstallerRedirect)
	public := r.Group("", middleware.Identity(env.sessions))
	public.GET("/:username", installHandler.AliasScript)
	public.GET("/:username/:slug/install", installHandler.Script)
	public.GET("/:username/:slug/config", installHandler.ConfigJSON)

	env.router = r
	return env
}

func (e *testEnv) seedUser(t *testing.T, username string) *models.User {
	t.Helper()
	user, err := e.store.UpsertUser(&models.User{
		ID:       uuid.New().String(),
		Username: username,
		Email:    username + "@example.com",
		Provider: "github",
	})
	require.NoError(t, err)
	return user
}

func (e *testEnv) seedConfig(
	t *testing.T,
	user *models.User,
	input services.ConfigInput,
) *models.Config {
	t.Helper()
	cfg, err := e.configs.Create(user.ID, input)
	require.NoError(t, err)
	return cfg
}

func (e *testEnv) sessionCookie(t *testing.T, user *models.User) *http.Cookie {
	t.Helper()
	signed, err := e.sessions.Sign(user.ID, user.Username)
	require.NoError(t, err)
	return &http.Cookie{Name: auth.SessionCookieName, Value: signed}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}
