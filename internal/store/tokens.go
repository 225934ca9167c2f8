package store

import (
	"time"

	"github.com/openbootdotdev/openboot.dev/internal/models"
)

func (s *Store) CreateAPIToken(token *models.APIToken) error {
	return s.db.Create(token).Error
}

// GetAPIToken looks a token up by its opaque value. Expiry is NOT checked
// here; callers compare against the server clock so the decision logic stays
// in one place.
func (s *Store) GetAPIToken(token string) (*models.APIToken, error) {
	var t models.APIToken
	if err := s.db.Where("token = ?", token).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) GetAPITokenByID(id string) (*models.APIToken, error) {
	var t models.APIToken
	if err := s.db.Where("id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) ListAPITokensByUserID(userID string) ([]models.APIToken, error) {
	var tokens []models.APIToken
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&tokens).Error
	return tokens, err
}

func (s *Store) DeleteAPIToken(id string) error {
	return s.db.Where("id = ?", id).Delete(&models.APIToken{}).Error
}

// CountActiveAPITokens counts tokens that have not yet expired. Used by the
// metrics updater.
func (s *Store) CountActiveAPITokens(now time.Time) (int64, error) {
	var count int64
	err := s.db.Model(&models.APIToken{}).
		Where("expires_at > ?", now).
		Count(&count).Error
	return count, err
}

// DeleteExpiredAPITokens reaps rows past their expiry. Run by the background
// reaper; the auth path never depends on it (expiry is always checked by
// comparing instants at read time).
func (s *Store) DeleteExpiredAPITokens(now time.Time) (int64, error) {
	res := s.db.Where("expires_at < ?", now).Delete(&models.APIToken{})
	return res.RowsAffected, res.Error
}
