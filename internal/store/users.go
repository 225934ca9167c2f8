package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/openbootdotdev/openboot.dev/internal/models"
)

func (s *Store) GetUserByID(id string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpsertUser creates or refreshes a user record on OAuth login. The ID is the
// provider-derived stable identifier; profile fields are overwritten on every
// login. A username held by a different user is a conflict the caller must
// resolve (the user service retries with a suffixed username).
func (s *Store) UpsertUser(user *models.User) (*models.User, error) {
	var existing models.User
	err := s.db.Where("id = ?", user.ID).First(&existing).Error

	if err == nil {
		if existing.Username != user.Username {
			var conflicting models.User
			conflictErr := s.db.Where("username = ? AND id != ?", user.Username, user.ID).
				First(&conflicting).
				Error
			if conflictErr == nil {
				return nil, ErrUsernameConflict
			}
			if !errors.Is(conflictErr, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("failed to check username: %w", conflictErr)
			}
		}

		existing.Username = user.Username
		existing.Email = user.Email
		existing.AvatarURL = user.AvatarURL
		existing.Provider = user.Provider
		if err := s.db.Save(&existing).Error; err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
		return &existing, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	var conflicting models.User
	err = s.db.Where("username = ?", user.Username).First(&conflicting).Error
	if err == nil {
		return nil, ErrUsernameConflict
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	if err := s.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}
