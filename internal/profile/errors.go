package profile

import "errors"

var (
	// ErrDuplicateKeyword is returned when promoting a keyword that is already explicit.
	ErrDuplicateKeyword = errors.New("keyword already exists")

	// ErrBadInput is returned for empty keywords, empty user ids or out-of-range weights.
	ErrBadInput = errors.New("bad input")

	// ErrProfileNotFound is returned when a user has no stored profile.
	ErrProfileNotFound = errors.New("profile not found")
)
