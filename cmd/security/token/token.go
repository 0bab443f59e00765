package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// MinDigestKeyBytes is the minimum accepted HMAC key length.
// 32 bytes matches the SHA-256 block-level recommendation.
const MinDigestKeyBytes = 32

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// DigestHex hashes a refresh token for server-side storage.
// With a non-empty key it uses HMAC-SHA256(token, key); otherwise it falls
// back to SHA-256(token) for keyless development setups.
func DigestHex(tok string, key []byte) string {
	if len(key) == 0 {
		return HashSHA256Hex(tok)
	}
	return HashHMACSHA256Hex(tok, key)
}

// ValidateDigestKey enforces the minimum key length. An empty key is allowed
// (SHA-256 fallback); a short non-empty key is a configuration error.
func ValidateDigestKey(key []byte) error {
	if len(key) > 0 && len(key) < MinDigestKeyBytes {
		return ErrDigestKeyTooShort
	}
	return nil
}
