package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Visibility is a config's access tier.
type Visibility string

const (
	// VisibilityPublic configs are listed and openly accessible.
	VisibilityPublic Visibility = "public"
	// VisibilityUnlisted configs are openly accessible but excluded from
	// listings. Unlisted differs from public only in discoverability, NOT in
	// access control: the access decision treats unlisted exactly like public.
	// Do not "fix" this by restricting unlisted reads.
	VisibilityUnlisted Visibility = "unlisted"
	// VisibilityPrivate configs are readable by their owner only.
	VisibilityPrivate Visibility = "private"
)

// Valid reports whether v is one of the known visibility tiers.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityUnlisted, VisibilityPrivate:
		return true
	}
	return false
}

// Package is a single entry in a config's package list.
type Package struct {
	Name string `json:"name"`
	Type string `json:"type"` // formula, cask, tap, mas, npm, pip, gem, cargo, go
	Desc string `json:"desc,omitempty"`
}

// PackageList is stored as a JSON array in a text column.
type PackageList []Package

// Scan implements sql.Scanner.
func (p *PackageList) Scan(value interface{}) error {
	if value == nil {
		*p = PackageList{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("failed to unmarshal package list")
	}
	if len(raw) == 0 {
		*p = PackageList{}
		return nil
	}
	return json.Unmarshal(raw, p)
}

// Value implements driver.Valuer.
func (p PackageList) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	encoded, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal package list: %w", err)
	}
	return string(encoded), nil
}

// Config is a named, shareable machine setup: a package list plus an optional
// custom script and dotfiles repository, exposed as a one-line install
// command. Owned by exactly one user; the slug is unique per owner and the
// alias (when set) is unique across all configs.
type Config struct {
	ID           string      `gorm:"primaryKey"                                       json:"id"`
	UserID       string      `gorm:"not null;index;uniqueIndex:idx_configs_user_slug" json:"-"`
	Slug         string      `gorm:"not null;uniqueIndex:idx_configs_user_slug;size:50" json:"slug"`
	Name         string      `gorm:"not null"                                         json:"name"`
	Description  string      `gorm:"type:text"                                        json:"description"`
	BasePreset   string      `gorm:"not null;default:'developer'"                     json:"base_preset"`
	Packages     PackageList `gorm:"type:text"                                        json:"packages"`
	CustomScript string      `gorm:"type:text"                                        json:"custom_script"`
	DotfilesRepo string      `json:"dotfiles_repo"`
	Snapshot     string      `gorm:"type:text"                                        json:"snapshot,omitempty"` // raw machine snapshot JSON, if created from one
	Alias        *string     `gorm:"uniqueIndex;size:20"                              json:"alias"`
	Visibility   Visibility  `gorm:"not null;default:'public';index"                  json:"visibility"`
	InstallCount int64       `gorm:"not null;default:0"                               json:"install_count"`
	ForkedFrom   string      `json:"forked_from,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func (Config) TableName() string {
	return "configs"
}

// IsPrivate reports whether access to the config is owner-gated.
func (c *Config) IsPrivate() bool {
	return c.Visibility == VisibilityPrivate
}
