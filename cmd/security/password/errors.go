package password

import "errors"

// Public, stable errors for callers.
var (
	ErrEmptyPassword = errors.New("password is empty")
	ErrInvalidCost   = errors.New("bcrypt cost out of range")
)
