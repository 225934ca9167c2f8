package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"github.com/openbootdotdev/openboot.dev/internal/auth"
	"github.com/openbootdotdev/openboot.dev/internal/config"
	"github.com/openbootdotdev/openboot.dev/internal/metrics"
	"github.com/openbootdotdev/openboot.dev/internal/services"
	"github.com/openbootdotdev/openboot.dev/internal/util"
	"github.com/openbootdotdev/openboot.dev/internal/validation"
)

// OAuth state lives in a short-lived cookie session, separate from the
// signed session cookie that represents a login.
const (
	stateKey    = "oauth_state"
	providerKey = "oauth_provider"
	returnToKey = "oauth_return_to"
)

type OAuthHandler struct {
	providers  map[string]*auth.OAuthProvider
	users      *services.UserService
	sessions   *auth.SessionManager
	httpClient *http.Client
	config     *config.Config
	metrics    metrics.Recorder
}

func NewOAuthHandler(
	providers map[string]*auth.OAuthProvider,
	users *services.UserService,
	sm *auth.SessionManager,
	httpClient *http.Client,
	cfg *config.Config,
	m metrics.Recorder,
) *OAuthHandler {
	return &OAuthHandler{
		providers:  providers,
		users:      users,
		sessions:   sm,
		httpClient: httpClient,
		config:     cfg,
		metrics:    m,
	}
}

// Login handles GET /api/auth/login/:provider
// Redirects the browser to the OAuth provider with a fresh CSRF state.
func (h *OAuthHandler) Login(c *gin.Context) {
	provider := c.Param("provider")
	oauthProvider, exists := h.providers[provider]
	if !exists {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported OAuth provider"})
		return
	}

	state, err := util.CryptoRandomHex(32)
	if err != nil {
		log.Printf("[OAuth] failed to generate state: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to initiate login"})
		return
	}

	session := sessions.Default(c)
	session.Set(stateKey, state)
	session.Set(providerKey, provider)
	if returnTo, ok := validation.SafeReturnTo(c.Query("return_to")); ok {
		session.Set(returnToKey, returnTo)
	}
	if err := session.Save(); err != nil {
		log.Printf("[OAuth] failed to save state session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to initiate login"})
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, oauthProvider.GetAuthURL(state))
}

// Callback handles GET /api/auth/callback/:provider
// Verifies the CSRF state, exchanges the code, upserts the user and sets the
// signed session cookie, then sends the browser back where it came from.
func (h *OAuthHandler) Callback(c *gin.Context) {
	provider := c.Param("provider")
	oauthProvider, exists := h.providers[provider]
	if !exists {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported OAuth provider"})
		return
	}

	session := sessions.Default(c)
	savedState, _ := session.Get(stateKey).(string)
	savedProvider, _ := session.Get(providerKey).(string)
	returnTo, _ := session.Get(returnToKey).(string)
	session.Clear()
	_ = session.Save()

	if savedState == "" || savedState != c.Query("state") || savedProvider != provider {
		h.metrics.RecordOAuthLogin(provider, false)
		c.JSON(http.StatusBadRequest, gin.H{"error": "State validation failed"})
		return
	}

	ctx := context.WithValue(c.Request.Context(), oauth2.HTTPClient, h.httpClient)

	token, err := oauthProvider.ExchangeCode(ctx, c.Query("code"))
	if err != nil {
		log.Printf("[OAuth] code exchange with %s failed: %v", provider, err)
		h.metrics.RecordOAuthLogin(provider, false)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to exchange authorization code"})
		return
	}

	info, err := oauthProvider.GetUserInfo(ctx, token)
	if err != nil {
		log.Printf("[OAuth] user info from %s failed: %v", provider, err)
		h.metrics.RecordOAuthLogin(provider, false)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to retrieve user information"})
		return
	}

	user, err := h.users.LoginOrRegister(services.OAuthProfile{
		ID:        info.ProviderUserID,
		Username:  info.Username,
		Email:     info.Email,
		AvatarURL: info.AvatarURL,
		Provider:  provider,
	})
	if err != nil {
		log.Printf("[OAuth] login failed for %s user: %v", provider, err)
		h.metrics.RecordOAuthLogin(provider, false)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log in"})
		return
	}

	signed, err := h.sessions.Sign(user.ID, user.Username)
	if err != nil {
		log.Printf("[OAuth] failed to sign session for %s: %v", user.ID, err)
		h.metrics.RecordOAuthLogin(provider, false)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	h.setSessionCookie(c, signed, h.sessions.MaxAge())
	h.metrics.RecordOAuthLogin(provider, true)

	if returnTo == "" {
		returnTo = "/"
	}
	c.Redirect(http.StatusFound, returnTo)
}

// Logout handles POST /api/auth/logout
func (h *OAuthHandler) Logout(c *gin.Context) {
	h.setSessionCookie(c, "", -1)
	h.metrics.RecordLogout()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *OAuthHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.SessionCookieName, value, maxAge, "/", "", h.config.IsProduction, true)
}
