package store

import "errors"

var (
	// ErrUsernameConflict is returned when a username already exists.
	ErrUsernameConflict = errors.New("username already exists")

	// ErrAliasConflict is returned when a config alias is already taken.
	ErrAliasConflict = errors.New("alias already taken")

	// ErrSlugConflict is returned when the owner already has a config with
	// the same slug.
	ErrSlugConflict = errors.New("config slug already exists")

	// ErrStatusNotSwapped is the losing side of a conditional status update
	// (0 rows affected): another request already performed the transition, or
	// the row was not in the expected state. This is the compare-and-swap
	// signal, not an ordinary failure; callers decide whether losing the swap
	// is an error (Approve) or benign (Poll marking a code used).
	ErrStatusNotSwapped = errors.New("status not swapped")
)
