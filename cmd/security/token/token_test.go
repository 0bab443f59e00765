package token

import (
	"strings"
	"testing"
)

func TestDigestHexKeyless(t *testing.T) {
	d := DigestHex("refresh-token", nil)
	if len(d) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(d))
	}
	if d != HashSHA256Hex("refresh-token") {
		t.Fatalf("keyless digest must be plain SHA-256")
	}
}

func TestDigestHexKeyed(t *testing.T) {
	key := []byte(strings.Repeat("k", MinDigestKeyBytes))
	d := DigestHex("refresh-token", key)
	if len(d) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(d))
	}
	if d == DigestHex("refresh-token", nil) {
		t.Fatalf("keyed digest must differ from keyless digest")
	}
	if d != DigestHex("refresh-token", key) {
		t.Fatalf("digest must be deterministic for the same key")
	}
}

func TestValidateDigestKey(t *testing.T) {
	if err := ValidateDigestKey(nil); err != nil {
		t.Fatalf("empty key is allowed: %v", err)
	}
	if err := ValidateDigestKey([]byte("short")); err != ErrDigestKeyTooShort {
		t.Fatalf("expected ErrDigestKeyTooShort, got %v", err)
	}
	if err := ValidateDigestKey([]byte(strings.Repeat("k", MinDigestKeyBytes))); err != nil {
		t.Fatalf("32-byte key is valid: %v", err)
	}
}
