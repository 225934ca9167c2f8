package models

import (
	"time"
)

// User is an account created on first OAuth login. The ID is derived from the
// OAuth provider and stays stable across logins; profile fields are refreshed
// on every login. Users are never deleted by this service.
type User struct {
	ID        string    `gorm:"primaryKey"                 json:"id"`
	Username  string    `gorm:"uniqueIndex;not null"       json:"username"`
	Email     string    `gorm:"index"                      json:"email"`
	AvatarURL string    `json:"avatar_url"`
	Provider  string    `gorm:"not null;default:'github'"  json:"provider"` // "github" or "google"
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
