package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/openbootdotdev/openboot.dev/internal/models"
	"github.com/openbootdotdev/openboot.dev/internal/store"
)

// Requester carries whatever credentials arrived with a request. Both fields
// may be empty (anonymous), and both may be set; the session wins for the
// owner check since it was already verified by middleware.
type Requester struct {
	// SessionUserID is the verified user id from the session cookie, or "".
	SessionUserID string
	// BearerToken is the raw token from the Authorization header, or "".
	BearerToken string
}

// AccessService is the single read-access decision for configs. Install
// script, config JSON and alias endpoints all consume the same Authorize
// call so the tiers cannot drift apart.
type AccessService struct {
	store *store.Store
}

func NewAccessService(s *store.Store) *AccessService {
	return &AccessService{store: s}
}

// Authorize decides whether req may read cfg. Public and unlisted configs are
// always readable: unlisted is a discoverability tier, not an access tier,
// and must not be restricted here. Private configs are readable only by their
// owner, identified by session or by an unexpired bearer token.
func (s *AccessService) Authorize(cfg *models.Config, req Requester) error {
	if !cfg.IsPrivate() {
		return nil
	}

	if req.SessionUserID != "" && req.SessionUserID == cfg.UserID {
		return nil
	}

	if req.BearerToken != "" {
		user, err := s.ResolveBearer(req.BearerToken)
		if err == nil && user.ID == cfg.UserID {
			return nil
		}
		if err != nil && !errors.Is(err, ErrAccessDenied) {
			return err
		}
	}

	return ErrAccessDenied
}

// ResolveBearer returns the owner of an unexpired token. Unknown and expired
// tokens both come back as ErrAccessDenied.
func (s *AccessService) ResolveBearer(token string) (*models.User, error) {
	if !strings.HasPrefix(token, models.TokenPrefix) {
		return nil, ErrAccessDenied
	}

	stored, err := s.store.GetAPIToken(token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccessDenied
		}
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}
	if stored.IsExpired() {
		return nil, ErrAccessDenied
	}

	user, err := s.store.GetUserByID(stored.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccessDenied
		}
		return nil, fmt.Errorf("failed to load token owner: %w", err)
	}
	return user, nil
}

// ParseBearerToken extracts the token from an Authorization header value.
// The scheme comparison is case-insensitive ("bearer x" and "Bearer x" both
// work); the token itself is passed through untouched.
func ParseBearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}
