package store

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/openbootdotdev/openboot.dev/internal/models"
)

func (s *Store) CreateCLIAuthCode(code *models.CLIAuthCode) error {
	return s.db.Create(code).Error
}

func (s *Store) GetCLIAuthCodeByID(id string) (*models.CLIAuthCode, error) {
	var code models.CLIAuthCode
	if err := s.db.Where("id = ?", id).First(&code).Error; err != nil {
		return nil, err
	}
	return &code, nil
}

func (s *Store) GetCLIAuthCodeByCode(value string) (*models.CLIAuthCode, error) {
	var code models.CLIAuthCode
	if err := s.db.Where("code = ?", value).First(&code).Error; err != nil {
		return nil, err
	}
	return &code, nil
}

// ClaimCLIAuthCode is the first half of the approval path: a conditional
// update that moves exactly one pending, unexpired row with this code to
// processing. Two browsers approving the same code race here and exactly one
// wins; the loser gets ErrStatusNotSwapped. The expiry predicate lives inside
// the UPDATE so a check-then-act gap cannot approve a just-expired code.
func (s *Store) ClaimCLIAuthCode(value string, now time.Time) (*models.CLIAuthCode, error) {
	res := s.db.Model(&models.CLIAuthCode{}).
		Where("code = ? AND status = ? AND expires_at > ?",
			value, models.CLIAuthPending, now).
		Updates(map[string]interface{}{
			"status":     models.CLIAuthProcessing,
			"updated_at": now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to claim auth code: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrStatusNotSwapped
	}

	var code models.CLIAuthCode
	if err := s.db.Where("code = ?", value).First(&code).Error; err != nil {
		return nil, fmt.Errorf("failed to load claimed auth code: %w", err)
	}
	return &code, nil
}

// ApproveCLIAuthCode finishes the approval: it mints the token row and
// attaches it to the claimed code in one transaction, so a token never exists
// without a code pointing at it. The status predicate guards against the row
// having been touched between claim and approve.
func (s *Store) ApproveCLIAuthCode(codeID string, token *models.APIToken, now time.Time) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(token).Error; err != nil {
			return fmt.Errorf("failed to create API token: %w", err)
		}

		res := tx.Model(&models.CLIAuthCode{}).
			Where("id = ? AND status = ?", codeID, models.CLIAuthProcessing).
			Updates(map[string]interface{}{
				"status":     models.CLIAuthApproved,
				"user_id":    token.UserID,
				"token_id":   token.ID,
				"updated_at": now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to approve auth code: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrStatusNotSwapped
		}
		return nil
	})
}

// ReleaseCLIAuthCode rolls a claimed code back to pending. Used when token
// minting fails after a successful claim, so the human can retry instead of
// the code being stuck in processing until expiry.
func (s *Store) ReleaseCLIAuthCode(codeID string, now time.Time) error {
	res := s.db.Model(&models.CLIAuthCode{}).
		Where("id = ? AND status = ?", codeID, models.CLIAuthProcessing).
		Updates(map[string]interface{}{
			"status":     models.CLIAuthPending,
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusNotSwapped
	}
	return nil
}

// MarkCLIAuthCodeUsed moves approved to used. Losing this swap is benign:
// it only means another poll already recorded the redemption.
func (s *Store) MarkCLIAuthCodeUsed(codeID string, now time.Time) error {
	res := s.db.Model(&models.CLIAuthCode{}).
		Where("id = ? AND status = ?", codeID, models.CLIAuthApproved).
		Updates(map[string]interface{}{
			"status":     models.CLIAuthUsed,
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusNotSwapped
	}
	return nil
}

// DeleteExpiredCLIAuthCodes reaps codes past their expiry regardless of
// status. Correctness never depends on this; every read path re-checks
// expiry against the clock.
func (s *Store) DeleteExpiredCLIAuthCodes(now time.Time) (int64, error) {
	res := s.db.Where("expires_at < ?", now).Delete(&models.CLIAuthCode{})
	return res.RowsAffected, res.Error
}

// CountLiveCLIAuthCodes counts unexpired codes: all of them, and the subset
// still waiting for a browser approval. Used by the metrics updater.
func (s *Store) CountLiveCLIAuthCodes(now time.Time) (total, pending int64, err error) {
	if err = s.db.Model(&models.CLIAuthCode{}).
		Where("expires_at > ?", now).
		Count(&total).Error; err != nil {
		return 0, 0, err
	}
	err = s.db.Model(&models.CLIAuthCode{}).
		Where("status = ? AND expires_at > ?", models.CLIAuthPending, now).
		Count(&pending).Error
	return total, pending, err
}

// CountStuckProcessing reports expired rows still marked processing. These
// indicate an approval crashed between claim and approve; the reaper logs
// them before deletion so operators notice.
func (s *Store) CountStuckProcessing(now time.Time) (int64, error) {
	var count int64
	err := s.db.Model(&models.CLIAuthCode{}).
		Where("status = ? AND expires_at < ?", models.CLIAuthProcessing, now).
		Count(&count).Error
	return count, err
}
