package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/openbootdotdev/openboot.dev/internal/models"
)

func (s *Store) CreateConfig(cfg *models.Config) error {
	return s.db.Create(cfg).Error
}

func (s *Store) UpdateConfig(cfg *models.Config) error {
	return s.db.Save(cfg).Error
}

func (s *Store) DeleteConfig(userID, slug string) error {
	return s.db.Where("user_id = ? AND slug = ?", userID, slug).
		Delete(&models.Config{}).Error
}

func (s *Store) GetConfig(userID, slug string) (*models.Config, error) {
	var cfg models.Config
	if err := s.db.Where("user_id = ? AND slug = ?", userID, slug).First(&cfg).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *Store) GetConfigByAlias(alias string) (*models.Config, error) {
	var cfg models.Config
	if err := s.db.Where("alias = ?", alias).First(&cfg).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *Store) ListConfigsByUserID(userID string) ([]models.Config, error) {
	var configs []models.Config
	err := s.db.Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&configs).Error
	return configs, err
}

func (s *Store) CountConfigsByUserID(userID string) (int64, error) {
	var count int64
	err := s.db.Model(&models.Config{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// PublicConfigSort selects the ordering of the public listing.
type PublicConfigSort string

const (
	SortRecent   PublicConfigSort = "recent"
	SortInstalls PublicConfigSort = "installs"
)

// ListPublicConfigs returns public configs only. Unlisted configs are openly
// readable but never listed; that is the whole difference between the tiers.
func (s *Store) ListPublicConfigs(
	username string,
	sort PublicConfigSort,
	limit, offset int,
) ([]models.Config, int64, error) {
	query := s.db.Model(&models.Config{}).
		Where("visibility = ?", models.VisibilityPublic)
	if username != "" {
		query = query.
			Joins("JOIN users ON users.id = configs.user_id").
			Where("users.username = ?", username)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "configs.updated_at DESC"
	if sort == SortInstalls {
		order = "configs.install_count DESC"
	}

	var configs []models.Config
	err := query.Order(order).Limit(limit).Offset(offset).Find(&configs).Error
	return configs, total, err
}

// SlugTaken reports whether the owner already has another config with slug.
// excludeID may be empty (create) or an existing config's ID (rename).
func (s *Store) SlugTaken(userID, slug, excludeID string) (bool, error) {
	query := s.db.Model(&models.Config{}).Where("user_id = ? AND slug = ?", userID, slug)
	if excludeID != "" {
		query = query.Where("id != ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// AliasTaken reports whether any other config already uses alias.
func (s *Store) AliasTaken(alias, excludeID string) (bool, error) {
	query := s.db.Model(&models.Config{}).Where("alias = ?", alias)
	if excludeID != "" {
		query = query.Where("id != ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// IncrementInstallCount bumps the counter without racing concurrent installs.
func (s *Store) IncrementInstallCount(configID string) error {
	return s.db.Model(&models.Config{}).
		Where("id = ?", configID).
		UpdateColumn("install_count", gorm.Expr("install_count + 1")).Error
}

// EnsureDefaultConfig seeds the "default" config on first login.
func (s *Store) EnsureDefaultConfig(cfg *models.Config) error {
	var existing models.Config
	err := s.db.Where("user_id = ? AND slug = ?", cfg.UserID, cfg.Slug).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check default config: %w", err)
	}
	return s.db.Create(cfg).Error
}
