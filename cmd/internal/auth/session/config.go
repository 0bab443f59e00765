package session

import (
	"time"

	"freemonitor/cmd/security/token"
)

// Config defines runtime configuration for the session subsystem.
//
// It is built once at startup from the application config and threaded
// through constructors; nothing in this package reads the environment.
type Config struct {
	// Issuer is the value set in the "iss" claim of access tokens.
	Issuer string

	// Secret signs HS256 access tokens. Minimum 32 bytes.
	Secret []byte

	// AccessTTL defines the lifetime of access tokens.
	AccessTTL time.Duration

	// RefreshTTL defines the lifetime of refresh tokens (and sessions).
	RefreshTTL time.Duration

	// ClockSkew is the allowed time skew during access-token validation.
	ClockSkew time.Duration

	// RefreshTokenBytes is the entropy of opaque refresh tokens.
	RefreshTokenBytes int

	// DigestKey keys the HMAC used to digest refresh tokens before storage.
	// Empty selects the SHA-256 development fallback.
	DigestKey []byte
}

// DefaultConfig returns defaults suitable for development.
// The secret must still be provided by the caller.
func DefaultConfig() Config {
	return Config{
		Issuer:            "freemonitor",
		AccessTTL:         15 * time.Minute,
		RefreshTTL:        7 * 24 * time.Hour,
		ClockSkew:         30 * time.Second,
		RefreshTokenBytes: 32,
	}
}

// Validate reports ErrConfig for any out-of-bounds value.
func (c Config) Validate() error {
	if c.Issuer == "" {
		return ErrConfig
	}
	if len(c.Secret) < 32 {
		return ErrConfig
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 || c.ClockSkew < 0 {
		return ErrConfig
	}
	if c.RefreshTokenBytes < 32 || c.RefreshTokenBytes > 64 {
		return ErrConfig
	}
	if err := token.ValidateDigestKey(c.DigestKey); err != nil {
		return ErrConfig
	}
	return nil
}
