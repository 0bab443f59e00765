package session

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"freemonitor/cmd/identity"
)

// Service implements the high-level session operations for FreeMonitor.
//
// It issues token pairs (signed access + opaque refresh), performs refresh
// rotation, and supports per-session and per-user revocation. The store is
// the single source of truth for refresh validity; the service never caches
// session state across calls.
type Service struct {
	cfg    Config
	tokens AccessTokenManager
	store  Store
	users  identity.Store
}

// Issued is the result of issuing or rotating a session. User is the
// resolved session owner so callers never need a second lookup after the
// old refresh token has been consumed.
type Issued struct {
	User         identity.User
	SessionID    string
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
}

// Summary is one entry of a user's concurrent-session listing.
type Summary struct {
	ID             string
	UserAgent      string
	IPAddress      string
	CreatedAt      time.Time
	ExpiresAt      time.Time
	Revoked        bool
	LastActivityAt time.Time
	IsCurrent      bool
}

// NewService constructs a Service. The users store is needed during rotation
// to rebuild access-token claims from the session's owner.
func NewService(cfg Config, store Store, users identity.Store, tokens AccessTokenManager) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil || users == nil || tokens == nil {
		return nil, ErrConfig
	}
	return &Service{cfg: cfg, store: store, users: users, tokens: tokens}, nil
}

// IssueSession creates a new session row and returns fresh tokens.
//
// The raw refresh token is returned exactly once; only its digest is stored.
func (s *Service) IssueSession(ctx context.Context, now time.Time, user identity.User, dev DeviceContext) (Issued, error) {
	refreshPlain, refreshHash, err := newOpaqueRefreshToken(s.cfg.RefreshTokenBytes, s.cfg.DigestKey)
	if err != nil {
		return Issued{}, err
	}

	refreshExp := now.Add(s.cfg.RefreshTTL)

	sessionID, err := s.store.Create(ctx, now, user.ID, dev, refreshHash, refreshExp)
	if err != nil {
		return Issued{}, fmt.Errorf("session: create: %w", err)
	}

	accessToken, accessExp, err := s.tokens.Issue(user.ID, user.Email, sessionID, now)
	if err != nil {
		return Issued{}, err
	}

	return Issued{
		User:         user,
		SessionID:    sessionID,
		AccessToken:  accessToken,
		AccessExp:    accessExp,
		RefreshToken: refreshPlain,
		RefreshExp:   refreshExp,
	}, nil
}

// RotateRefresh exchanges a valid refresh token for a fresh pair.
//
// The presented token becomes permanently unusable the instant rotation
// succeeds; concurrent replays observe it as already invalid. Reuse of an
// already-rotated token revokes the user's entire session set (theft
// response) before surfacing ErrRefreshReuseDetected.
func (s *Service) RotateRefresh(ctx context.Context, now time.Time, refreshTokenPlain string, dev DeviceContext) (Issued, error) {
	refreshTokenPlain = strings.TrimSpace(refreshTokenPlain)
	// Basic sanity bounds to avoid pathological inputs.
	if refreshTokenPlain == "" || len(refreshTokenPlain) > 4096 {
		return Issued{}, ErrSessionNotFound
	}

	refreshHash := digestHex(refreshTokenPlain, s.cfg.DigestKey)

	newPlain, newHash, err := newOpaqueRefreshToken(s.cfg.RefreshTokenBytes, s.cfg.DigestKey)
	if err != nil {
		return Issued{}, err
	}
	newExp := now.Add(s.cfg.RefreshTTL)

	res, err := s.store.Rotate(ctx, now, refreshHash, newHash, newExp, dev)
	if err != nil {
		return Issued{}, err
	}

	user, err := s.users.GetUserByID(ctx, res.Old.UserID)
	if err != nil {
		return Issued{}, fmt.Errorf("session: resolve user: %w", err)
	}

	accessToken, accessExp, err := s.tokens.Issue(user.ID, user.Email, res.NewSessionID, now)
	if err != nil {
		return Issued{}, err
	}

	return Issued{
		User:         user,
		SessionID:    res.NewSessionID,
		AccessToken:  accessToken,
		AccessExp:    accessExp,
		RefreshToken: newPlain,
		RefreshExp:   newExp,
	}, nil
}

// VerifyAccess verifies an access token's signature and expiry.
// Access tokens are self-contained; no storage lookup happens here.
func (s *Service) VerifyAccess(token string, now time.Time) (AccessClaims, error) {
	return s.tokens.Verify(token, now)
}

// RevokeSession revokes a single session by id (logout). Idempotent.
func (s *Service) RevokeSession(ctx context.Context, now time.Time, sessionID string) error {
	return s.store.Revoke(ctx, now, sessionID, "logout")
}

// RevokeOwned revokes sessionID only if it belongs to userID. Idempotent.
func (s *Service) RevokeOwned(ctx context.Context, now time.Time, userID, sessionID string) error {
	row, err := s.store.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if row.UserID != userID {
		return ErrSessionNotFound
	}
	return s.store.Revoke(ctx, now, sessionID, "logout")
}

// RevokeAll revokes all sessions for a user (logout everywhere). Idempotent.
func (s *Service) RevokeAll(ctx context.Context, now time.Time, userID string) error {
	return s.store.RevokeAll(ctx, now, userID, "logout")
}

// Touch updates last_activity_at for a session (best-effort).
func (s *Service) Touch(ctx context.Context, now time.Time, sessionID string) error {
	return s.store.Touch(ctx, now, sessionID)
}

// ListSessions returns the user's sessions newest-first, marking the entry
// matching currentSessionID (taken from the caller's own access claims).
func (s *Service) ListSessions(ctx context.Context, userID, currentSessionID string) ([]Summary, error) {
	rows, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]Summary, 0, len(rows))
	for _, r := range rows {
		out = append(out, Summary{
			ID:             r.ID,
			UserAgent:      r.UserAgent,
			IPAddress:      ipString(r.IP),
			CreatedAt:      r.CreatedAt,
			ExpiresAt:      r.ExpiresAt,
			Revoked:        r.RevokedAt != nil,
			LastActivityAt: r.LastActivityAt,
			IsCurrent:      r.ID == currentSessionID,
		})
	}
	return out, nil
}

func ipString(ip net.IP) string {
	if ip == nil {
		return ""
	}
	return ip.String()
}
