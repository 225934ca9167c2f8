package models

import (
	"time"
)

// TokenPrefix makes issued tokens visually distinguishable from other secrets
// in logs and shell configs.
const TokenPrefix = "obt_"

// APIToken is an opaque bearer credential minted by the device authorization
// flow. The token value is a prefixed 128-bit random string and is looked up
// by exact value; it grants the privileges of its owning user until expiry.
type APIToken struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"not null;index"`
	Token     string `gorm:"uniqueIndex;not null"`
	Name      string `gorm:"not null;default:'cli'"`
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (APIToken) TableName() string {
	return "api_tokens"
}

// IsExpired compares against the server clock. Stored timestamps are parsed
// into time.Time at scan, so the comparison is between real instants rather
// than raw column strings.
func (t *APIToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}
