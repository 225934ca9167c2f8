package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

// OAuthProviderConfig contains configuration for an OAuth provider
type OAuthProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// OAuthUserInfo contains user information from OAuth provider
type OAuthUserInfo struct {
	ProviderUserID string // Provider's user ID
	Username       string // Provider's username or handle
	Email          string // User email
	AvatarURL      string // Avatar URL
}

// OAuthProvider handles OAuth authentication for one upstream provider.
type OAuthProvider struct {
	config   *oauth2.Config
	provider string // "github" or "google"

	// userInfoURL overrides the provider API base in tests.
	userInfoURL string
}

// NewGitHubProvider creates a new GitHub OAuth provider
func NewGitHubProvider(cfg OAuthProviderConfig) *OAuthProvider {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"read:user", "user:email"}
	}
	return &OAuthProvider{
		provider: "github",
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     github.Endpoint,
		},
		userInfoURL: "https://api.github.com",
	}
}

// NewGoogleProvider creates a new Google OAuth provider
func NewGoogleProvider(cfg OAuthProviderConfig) *OAuthProvider {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "email", "profile"}
	}
	return &OAuthProvider{
		provider: "google",
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     google.Endpoint,
		},
		userInfoURL: "https://www.googleapis.com",
	}
}

// GetAuthURL returns the OAuth authorization URL
func (p *OAuthProvider) GetAuthURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// ExchangeCode exchanges authorization code for access token
func (p *OAuthProvider) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	return p.config.Exchange(ctx, code)
}

// GetProvider returns the provider name
func (p *OAuthProvider) GetProvider() string {
	return p.provider
}

// GetUserInfo retrieves user information from the OAuth provider
func (p *OAuthProvider) GetUserInfo(
	ctx context.Context,
	token *oauth2.Token,
) (*OAuthUserInfo, error) {
	switch p.provider {
	case "github":
		return p.getGitHubUserInfo(ctx, token)
	case "google":
		return p.getGoogleUserInfo(ctx, token)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", p.provider)
	}
}

// GitHub user info structures
type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (p *OAuthProvider) getGitHubUserInfo(
	ctx context.Context,
	token *oauth2.Token,
) (*OAuthUserInfo, error) {
	client := p.config.Client(ctx, token)

	var user githubUser
	if err := p.fetchJSON(ctx, client, p.userInfoURL+"/user", &user); err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}

	// The profile email is often hidden; fall back to the emails endpoint.
	if user.Email == "" {
		email, err := p.getGitHubPrimaryEmail(ctx, client)
		if err == nil {
			user.Email = email
		}
	}

	return &OAuthUserInfo{
		ProviderUserID: fmt.Sprintf("github:%d", user.ID),
		Username:       user.Login,
		Email:          user.Email,
		AvatarURL:      user.AvatarURL,
	}, nil
}

func (p *OAuthProvider) getGitHubPrimaryEmail(
	ctx context.Context,
	client *http.Client,
) (string, error) {
	var emails []githubEmail
	if err := p.fetchJSON(ctx, client, p.userInfoURL+"/user/emails", &emails); err != nil {
		return "", err
	}

	for _, email := range emails {
		if email.Primary && email.Verified {
			return email.Email, nil
		}
	}
	for _, email := range emails {
		if email.Verified {
			return email.Email, nil
		}
	}
	return "", fmt.Errorf("no verified email found")
}

// Google user info structure
type googleUser struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (p *OAuthProvider) getGoogleUserInfo(
	ctx context.Context,
	token *oauth2.Token,
) (*OAuthUserInfo, error) {
	client := p.config.Client(ctx, token)

	var user googleUser
	err := p.fetchJSON(ctx, client, p.userInfoURL+"/oauth2/v3/userinfo", &user)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}

	if user.Email == "" {
		return nil, fmt.Errorf("google account has no email address")
	}

	// Google has no username; derive one from the email local part.
	username := user.Email
	if at := strings.Index(username, "@"); at > 0 {
		username = username[:at]
	}

	return &OAuthUserInfo{
		ProviderUserID: "google:" + user.Sub,
		Username:       username,
		Email:          user.Email,
		AvatarURL:      user.Picture,
	}, nil
}

func (p *OAuthProvider) fetchJSON(
	ctx context.Context,
	client *http.Client,
	url string,
	out interface{},
) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s API error: %s - %s", p.provider, resp.Status, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
