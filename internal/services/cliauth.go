package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openbootdotdev/openboot.dev/internal/config"
	"github.com/openbootdotdev/openboot.dev/internal/models"
	"github.com/openbootdotdev/openboot.dev/internal/store"
	"github.com/openbootdotdev/openboot.dev/internal/util"
)

// codeCharset avoids confusable characters: 0, O, 1, I, L
const (
	codeCharset = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	codeLength  = 8
)

// PollStatus is the status reported to a polling CLI. It is a projection of
// the stored status: processing is reported as pending, used is reported as
// approved (the poll that lost the used-swap still gets its token), and
// expiry dominates everything.
type PollStatus string

const (
	PollPending  PollStatus = "pending"
	PollApproved PollStatus = "approved"
	PollExpired  PollStatus = "expired"
)

// PollResult carries the poll projection plus, once approved, the minted
// token and its owner.
type PollResult struct {
	Status PollStatus
	Token  *models.APIToken
	User   *models.User
}

// CLIAuthService runs the device authorization flow: the CLI calls Start and
// shows the code, the browser calls Approve, the CLI polls by code id until
// it gets the token. All same-code coordination happens through conditional
// updates in the store; the service holds no locks.
type CLIAuthService struct {
	store  *store.Store
	config *config.Config
	tokens *TokenService
}

func NewCLIAuthService(s *store.Store, cfg *config.Config, tokens *TokenService) *CLIAuthService {
	return &CLIAuthService{store: s, config: cfg, tokens: tokens}
}

// Start creates a pending auth code. Any code the client suggests is ignored;
// the server is the only party that mints codes.
func (s *CLIAuthService) Start() (*models.CLIAuthCode, error) {
	// Retry on the unlikely unique-code collision.
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		value, err := util.CryptoRandomCode(codeLength, codeCharset)
		if err != nil {
			return nil, fmt.Errorf("failed to generate code: %w", err)
		}

		authCode := &models.CLIAuthCode{
			ID:        uuid.New().String(),
			Code:      value,
			Status:    models.CLIAuthPending,
			ExpiresAt: time.Now().Add(s.config.CLIAuthCodeExpiration),
		}
		if err := s.store.CreateCLIAuthCode(authCode); err != nil {
			lastErr = err
			continue
		}
		return authCode, nil
	}
	return nil, fmt.Errorf("failed to create auth code: %w", lastErr)
}

// Approve redeems a code for the logged-in user: claim the pending row,
// mint a token, attach it. Exactly one approval can succeed per code; a
// concurrent second approval loses the claim and gets
// ErrInvalidOrExpiredCode, same as an expired or unknown code.
func (s *CLIAuthService) Approve(codeValue, userID string) error {
	codeValue = NormalizeCode(codeValue)
	if len(codeValue) != codeLength {
		return ErrInvalidOrExpiredCode
	}

	now := time.Now()
	claimed, err := s.store.ClaimCLIAuthCode(codeValue, now)
	if err != nil {
		if errors.Is(err, store.ErrStatusNotSwapped) {
			return ErrInvalidOrExpiredCode
		}
		return fmt.Errorf("failed to claim code: %w", err)
	}

	token, err := s.tokens.Mint(userID)
	if err != nil {
		s.release(claimed.ID)
		return err
	}

	if err := s.store.ApproveCLIAuthCode(claimed.ID, token, now); err != nil {
		if errors.Is(err, store.ErrStatusNotSwapped) {
			// The row left processing between claim and approve. Nothing to
			// release; the claim is no longer ours.
			return ErrInvalidOrExpiredCode
		}
		s.release(claimed.ID)
		return fmt.Errorf("failed to approve code %s: %w", claimed.ID, err)
	}
	return nil
}

// release rolls a claimed code back to pending so the human can retry after
// a failed approval. Best effort; a stuck row is reaped at expiry.
func (s *CLIAuthService) release(codeID string) {
	if err := s.store.ReleaseCLIAuthCode(codeID, time.Now()); err != nil {
		log.Printf("[CLIAuth] failed to release code %s: %v", codeID, err)
	}
}

// Poll reports the code's state to the CLI. Unknown ids report expired, the
// same as genuinely expired codes, so poll responses cannot be used to
// enumerate live ids. The first poll that sees approved flips the row to
// used; losing that swap is benign and both pollers get the token.
func (s *CLIAuthService) Poll(codeID string) (*PollResult, error) {
	authCode, err := s.store.GetCLIAuthCodeByID(codeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &PollResult{Status: PollExpired}, nil
		}
		return nil, fmt.Errorf("failed to load code %s: %w", codeID, err)
	}

	if authCode.IsExpired() {
		return &PollResult{Status: PollExpired}, nil
	}

	switch authCode.Status {
	case models.CLIAuthPending, models.CLIAuthProcessing:
		return &PollResult{Status: PollPending}, nil
	case models.CLIAuthApproved, models.CLIAuthUsed:
		return s.redeem(authCode)
	default:
		return nil, fmt.Errorf("code %s has unknown status %q", codeID, authCode.Status)
	}
}

// redeem loads the attached token and marks the code used. Both the approved
// and used branches land here: polling an already-used code returns the same
// payload, which keeps retries after a dropped response safe.
func (s *CLIAuthService) redeem(authCode *models.CLIAuthCode) (*PollResult, error) {
	if authCode.TokenID == nil || authCode.UserID == nil {
		return nil, fmt.Errorf("code %s is redeemed but has no token attached", authCode.ID)
	}

	token, err := s.store.GetAPITokenByID(*authCode.TokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to load token for code %s: %w", authCode.ID, err)
	}
	user, err := s.store.GetUserByID(*authCode.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user for code %s: %w", authCode.ID, err)
	}

	if authCode.Status == models.CLIAuthApproved {
		err := s.store.MarkCLIAuthCodeUsed(authCode.ID, time.Now())
		if err != nil && !errors.Is(err, store.ErrStatusNotSwapped) {
			return nil, fmt.Errorf("failed to mark code %s used: %w", authCode.ID, err)
		}
	}

	return &PollResult{Status: PollApproved, Token: token, User: user}, nil
}

// NormalizeCode uppercases and strips the separators humans type when
// copying a displayed code.
func NormalizeCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	code = strings.ReplaceAll(code, "-", "")
	code = strings.ReplaceAll(code, " ", "")
	return code
}

// FormatCode formats a code for display (e.g., "ABCDEFGH" -> "ABCD-EFGH")
func FormatCode(code string) string {
	if len(code) != codeLength {
		return code
	}
	return code[:4] + "-" + code[4:]
}
