package session

import (
	"testing"
	"time"
)

func TestHS256_IssueAndVerify(t *testing.T) {
	mgr, err := NewHS256Manager(validConfig())
	if err != nil {
		t.Fatalf("NewHS256Manager: %v", err)
	}

	now := time.Now().UTC()
	tok, exp, err := mgr.Issue("user-1", "e2e@freemonitor.dev", "01HZZZZZZZZZZZZZZZZZZZZZZZ", now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !exp.After(now) {
		t.Fatalf("expected exp after now")
	}

	claims, err := mgr.Verify(tok, now.Add(1*time.Second))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("subject mismatch: %q", claims.UserID)
	}
	if claims.Email != "e2e@freemonitor.dev" {
		t.Fatalf("email mismatch: %q", claims.Email)
	}
	if claims.SessionID == "" {
		t.Fatalf("missing session id claim")
	}
}

func TestHS256_RejectsExpiredToken(t *testing.T) {
	cfg := validConfig()
	cfg.ClockSkew = 0
	mgr, err := NewHS256Manager(cfg)
	if err != nil {
		t.Fatalf("NewHS256Manager: %v", err)
	}

	now := time.Now().UTC()
	tok, _, err := mgr.Issue("user-1", "e2e@freemonitor.dev", "sess-1", now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := mgr.Verify(tok, now.Add(cfg.AccessTTL+time.Second)); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken after expiry, got %v", err)
	}
}

func TestHS256_RejectsForeignSignature(t *testing.T) {
	mgr, err := NewHS256Manager(validConfig())
	if err != nil {
		t.Fatalf("NewHS256Manager: %v", err)
	}

	other := validConfig()
	other.Secret = []byte("another-secret-another-secret-32")
	foreign, err := NewHS256Manager(other)
	if err != nil {
		t.Fatalf("NewHS256Manager: %v", err)
	}

	now := time.Now().UTC()
	tok, _, err := foreign.Issue("user-1", "e2e@freemonitor.dev", "sess-1", now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := mgr.Verify(tok, now); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for foreign signature, got %v", err)
	}
}

func TestHS256_RejectsGarbage(t *testing.T) {
	mgr, err := NewHS256Manager(validConfig())
	if err != nil {
		t.Fatalf("NewHS256Manager: %v", err)
	}

	if _, err := mgr.Verify("not-a-token", time.Now().UTC()); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
