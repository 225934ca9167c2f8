package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openbootdotdev/openboot.dev/internal/config"
	"github.com/openbootdotdev/openboot.dev/internal/models"
	"github.com/openbootdotdev/openboot.dev/internal/store"
	"github.com/openbootdotdev/openboot.dev/internal/util"
)

// tokenRandomHexLen is the number of hex characters after the prefix,
// 128 bits of entropy.
const tokenRandomHexLen = 32

// TokenService mints opaque bearer tokens. Tokens are stored and looked up by
// exact value; there is no refresh, a token lives until its expiry.
type TokenService struct {
	store  *store.Store
	config *config.Config
}

func NewTokenService(s *store.Store, cfg *config.Config) *TokenService {
	return &TokenService{store: s, config: cfg}
}

// Mint builds a token row without persisting it. The CLI auth approval path
// persists the row inside the same transaction that attaches it to the code.
func (s *TokenService) Mint(userID string) (*models.APIToken, error) {
	value, err := util.CryptoRandomHex(tokenRandomHexLen)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &models.APIToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		Token:     models.TokenPrefix + value,
		Name:      "cli",
		ExpiresAt: time.Now().Add(s.config.APITokenExpiration),
	}, nil
}

// Issue mints and persists a token in one step.
func (s *TokenService) Issue(userID string) (*models.APIToken, error) {
	token, err := s.Mint(userID)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateAPIToken(token); err != nil {
		return nil, fmt.Errorf("failed to store token: %w", err)
	}
	return token, nil
}
