package session

import (
	"context"
	"net"
	"time"
)

// DeviceContext describes the client that owns a session.
type DeviceContext struct {
	UserAgent string
	IP        net.IP
}

// Row mirrors the freemonitor.sessions row used by the session subsystem.
type Row struct {
	ID                  string
	UserID              string
	RefreshTokenHash    string
	UserAgent           string
	IP                  net.IP
	CreatedAt           time.Time
	LastActivityAt      time.Time
	ExpiresAt           time.Time
	RevokedAt           *time.Time
	ReplacedBySessionID *string
}

// Valid reports whether the row is usable at instant now.
// The expiry boundary is exclusive.
func (r Row) Valid(now time.Time) bool {
	return r.RevokedAt == nil && r.ExpiresAt.After(now)
}

// RotateResult describes a successful refresh rotation.
type RotateResult struct {
	// Old is the consumed session row (now revoked).
	Old Row
	// NewSessionID identifies the replacement session created atomically
	// with the revocation of Old.
	NewSessionID string
}

// Store abstracts persistence for session state.
//
// Implementations must make Rotate atomic: under concurrent calls with the
// same refresh digest exactly one succeeds and all others observe the token
// as already invalid.
type Store interface {
	// Create inserts a new session row and returns its id.
	Create(ctx context.Context, now time.Time, userID string, dev DeviceContext, refreshHash string, expiresAt time.Time) (sessionID string, err error)

	// GetByID loads a session row by id.
	GetByID(ctx context.Context, sessionID string) (Row, error)

	// ListByUser returns all sessions for a user, newest first.
	ListByUser(ctx context.Context, userID string) ([]Row, error)

	// Rotate consumes the session identified by refreshHash (conditional on
	// it being non-revoked and unexpired) and atomically creates its
	// replacement. Losers get ErrSessionNotFound / ErrSessionExpired /
	// ErrSessionRevoked / ErrRefreshReuseDetected; reuse additionally
	// revokes every session of the owning user.
	Rotate(ctx context.Context, now time.Time, refreshHash string, newRefreshHash string, newExpiresAt time.Time, dev DeviceContext) (RotateResult, error)

	// Touch updates last_activity_at for a session.
	Touch(ctx context.Context, now time.Time, sessionID string) error

	// Revoke revokes a single session. Idempotent.
	Revoke(ctx context.Context, now time.Time, sessionID string, reason string) error

	// RevokeAll revokes all sessions for a user. Idempotent.
	RevokeAll(ctx context.Context, now time.Time, userID string, reason string) error
}
