package services

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openbootdotdev/openboot.dev/internal/models"
	"github.com/openbootdotdev/openboot.dev/internal/store"
	"github.com/openbootdotdev/openboot.dev/internal/util"
	"github.com/openbootdotdev/openboot.dev/internal/validation"
)

// OAuthProfile is the provider-agnostic identity handed over by the OAuth
// callback. ID must be stable across logins (provider name + provider user
// id), it is what user rows are keyed on.
type OAuthProfile struct {
	ID        string
	Username  string
	Email     string
	AvatarURL string
	Provider  string
}

type UserService struct {
	store *store.Store
}

func NewUserService(s *store.Store) *UserService {
	return &UserService{store: s}
}

var usernameCleanup = regexp.MustCompile(`[^a-z0-9-]+`)

// LoginOrRegister upserts the user for an OAuth login and seeds the default
// config on first sight. Usernames that are reserved words or already taken
// by another account get a random 4-digit suffix rather than failing the
// login.
func (s *UserService) LoginOrRegister(profile OAuthProfile) (*models.User, error) {
	username := normalizeUsername(profile.Username)
	if username == "" || validation.IsReservedWord(username) {
		suffixed, err := suffixUsername(username)
		if err != nil {
			return nil, err
		}
		username = suffixed
	}

	user := &models.User{
		ID:        profile.ID,
		Username:  username,
		Email:     profile.Email,
		AvatarURL: profile.AvatarURL,
		Provider:  profile.Provider,
	}

	created, err := s.store.UpsertUser(user)
	if errors.Is(err, store.ErrUsernameConflict) {
		// Someone else holds the name. Retry once with a suffix; a second
		// collision on 4 random digits is not worth handling.
		user.Username, err = suffixUsername(username)
		if err != nil {
			return nil, err
		}
		created, err = s.store.UpsertUser(user)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	if err := s.seedDefaultConfig(created); err != nil {
		// Login still succeeds; the user can create configs manually.
		log.Printf("[User] failed to seed default config for %s: %v", created.ID, err)
	}

	return created, nil
}

func (s *UserService) GetByID(id string) (*models.User, error) {
	user, err := s.store.GetUserByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) GetByUsername(username string) (*models.User, error) {
	user, err := s.store.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// seedDefaultConfig gives every account a starter config so the install URL
// /<username>/default works right after signup.
func (s *UserService) seedDefaultConfig(user *models.User) error {
	return s.store.EnsureDefaultConfig(&models.Config{
		ID:         uuid.New().String(),
		UserID:     user.ID,
		Slug:       "default",
		Name:       "My Setup",
		BasePreset: "developer",
		Visibility: models.VisibilityPublic,
		Packages:   models.PackageList{},
	})
}

// normalizeUsername lowercases and strips characters that cannot appear in a
// path segment, then trims stray hyphens.
func normalizeUsername(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = usernameCleanup.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-")
	if len(name) > 30 {
		name = name[:30]
	}
	return name
}

func suffixUsername(base string) (string, error) {
	digits, err := util.CryptoRandomCode(4, "0123456789")
	if err != nil {
		return "", fmt.Errorf("failed to generate username suffix: %w", err)
	}
	if base == "" {
		base = "user"
	}
	return base + "-" + digits, nil
}
