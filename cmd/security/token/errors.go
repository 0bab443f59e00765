package token

import "errors"

// Public, stable errors for callers.
var (
	ErrDigestKeyTooShort = errors.New("refresh digest key too short")
)
