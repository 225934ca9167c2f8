package services

import "errors"

var (
	// ErrInvalidOrExpiredCode covers every way an auth code can fail to
	// approve: unknown, expired, already claimed, already redeemed. The
	// sub-cases are deliberately indistinguishable to callers so responses
	// cannot be used to probe code state.
	ErrInvalidOrExpiredCode = errors.New("invalid or expired code")

	// ErrAccessDenied means the requester may not read a private config.
	ErrAccessDenied = errors.New("access denied")

	// ErrConfigNotFound is returned for missing configs and, on human-facing
	// lookups, for private configs the requester may not see.
	ErrConfigNotFound = errors.New("config not found")

	// ErrConfigLimitReached means the owner is at the per-user config cap.
	ErrConfigLimitReached = errors.New("config limit reached")

	ErrUserNotFound = errors.New("user not found")
)
