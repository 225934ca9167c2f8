package bootstrap

import (
	"log"
	"net/http"

	"github.com/openbootdotdev/openboot.dev/internal/auth"
	"github.com/openbootdotdev/openboot.dev/internal/config"
)

// initializeOAuthProviders initializes configured OAuth providers
func initializeOAuthProviders(cfg *config.Config) map[string]*auth.OAuthProvider {
	providers := make(map[string]*auth.OAuthProvider)

	// GitHub OAuth
	switch {
	case cfg.GitHubClientID == "" && cfg.GitHubClientSecret == "":
		// Skip GitHub OAuth
	case cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "":
		log.Printf("Warning: GitHub OAuth partially configured, CLIENT_ID or CLIENT_SECRET missing")
	default:
		providers["github"] = auth.NewGitHubProvider(auth.OAuthProviderConfig{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  cfg.BaseURL + "/api/auth/callback/github",
		})
	}

	// Google OAuth
	switch {
	case cfg.GoogleClientID == "" && cfg.GoogleClientSecret == "":
		// Skip Google OAuth
	case cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "":
		log.Printf("Warning: Google OAuth partially configured, CLIENT_ID or CLIENT_SECRET missing")
	default:
		providers["google"] = auth.NewGoogleProvider(auth.OAuthProviderConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.BaseURL + "/api/auth/callback/google",
		})
	}

	return providers
}

// getProviderNames returns a list of provider names
func getProviderNames(providers map[string]*auth.OAuthProvider) []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	return names
}

// createOAuthHTTPClient creates the HTTP client used for token exchange and
// user info requests against the OAuth providers
func createOAuthHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.OAuthTimeout}
}

// logOAuthProvidersStatus logs enabled OAuth providers
func logOAuthProvidersStatus(providers map[string]*auth.OAuthProvider) {
	if len(providers) == 0 {
		log.Printf("Warning: no OAuth providers configured, browser login is unavailable")
		return
	}
	log.Printf("OAuth providers enabled: %v", getProviderNames(providers))
}
