package models

import (
	"time"
)

// CLIAuthStatus is the persisted lifecycle state of a CLI authorization code.
// It only ever moves forward: pending → processing → approved → used.
// "Expired" is deliberately not a stored status; it is computed from
// ExpiresAt at read time so the two representations cannot drift.
type CLIAuthStatus string

const (
	CLIAuthPending CLIAuthStatus = "pending"
	// CLIAuthProcessing marks a code claimed by an in-flight approval. It is
	// a transient internal state: pollers see it as pending.
	CLIAuthProcessing CLIAuthStatus = "processing"
	CLIAuthApproved   CLIAuthStatus = "approved"
	CLIAuthUsed       CLIAuthStatus = "used"
)

// CLIAuthCode is a short-lived device-authorization code. The CLI displays
// Code to the human and polls by ID; the browser approves by Code. UserID and
// TokenID stay null until approval and are set exactly once.
type CLIAuthCode struct {
	ID        string        `gorm:"primaryKey;size:36"`
	Code      string        `gorm:"uniqueIndex;not null;size:8"`
	Status    CLIAuthStatus `gorm:"not null;default:'pending';index"`
	UserID    *string
	TokenID   *string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CLIAuthCode) TableName() string {
	return "cli_auth_codes"
}

// IsExpired dominates the stored status: an expired code reports expired to
// pollers and rejects approval no matter what Status says.
func (c *CLIAuthCode) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// IsRedeemed reports whether a token has been attached. Invariant: true iff
// Status is approved or used.
func (c *CLIAuthCode) IsRedeemed() bool {
	return c.Status == CLIAuthApproved || c.Status == CLIAuthUsed
}
