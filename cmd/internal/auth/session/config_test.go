package session

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.Secret = []byte(strings.Repeat("s", 32))
	return cfg
}

func TestConfigValidate_MissingSecret(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != ErrConfig {
		t.Fatalf("expected ErrConfig on missing secret, got %v", err)
	}
}

func TestConfigValidate_ShortSecret(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Secret = []byte("short")
	if err := cfg.Validate(); err != ErrConfig {
		t.Fatalf("expected ErrConfig on short secret, got %v", err)
	}
}

func TestConfigValidate_InvalidDurations(t *testing.T) {
	cfg := validConfig()
	cfg.AccessTTL = -5 * time.Minute
	if err := cfg.Validate(); err != ErrConfig {
		t.Fatalf("expected ErrConfig for negative access ttl, got %v", err)
	}

	cfg = validConfig()
	cfg.RefreshTTL = 0
	if err := cfg.Validate(); err != ErrConfig {
		t.Fatalf("expected ErrConfig for zero refresh ttl, got %v", err)
	}
}

func TestConfigValidate_RefreshTokenBytesBounds(t *testing.T) {
	cfg := validConfig()
	cfg.RefreshTokenBytes = 16
	if err := cfg.Validate(); err != ErrConfig {
		t.Fatalf("expected ErrConfig for small refresh bytes, got %v", err)
	}

	cfg = validConfig()
	cfg.RefreshTokenBytes = 128
	if err := cfg.Validate(); err != ErrConfig {
		t.Fatalf("expected ErrConfig for large refresh bytes, got %v", err)
	}
}

func TestConfigValidate_ShortDigestKey(t *testing.T) {
	cfg := validConfig()
	cfg.DigestKey = []byte("short")
	if err := cfg.Validate(); err != ErrConfig {
		t.Fatalf("expected ErrConfig for short digest key, got %v", err)
	}
}

func TestConfigValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.DigestKey = []byte(strings.Repeat("k", 32))
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error with digest key: %v", err)
	}
}
