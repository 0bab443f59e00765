package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// MemoryStore is an in-memory Store used when no database is configured
// and by unit tests. All operations, including Rotate, are serialized by a
// single mutex, which gives the same one-winner guarantee the Postgres
// implementation gets from its conditional update.
type MemoryStore struct {
	mu     sync.Mutex
	rows   map[string]*Row // by session id
	byHash map[string]string
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:   make(map[string]*Row),
		byHash: make(map[string]string),
	}
}

// Create inserts a new session row and returns its ULID.
func (s *MemoryStore) Create(_ context.Context, now time.Time, userID string, dev DeviceContext, refreshHash string, expiresAt time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.createLocked(now, userID, dev, refreshHash, expiresAt), nil
}

func (s *MemoryStore) createLocked(now time.Time, userID string, dev DeviceContext, refreshHash string, expiresAt time.Time) string {
	id := ulid.Make().String()
	s.rows[id] = &Row{
		ID:               id,
		UserID:           userID,
		RefreshTokenHash: refreshHash,
		UserAgent:        dev.UserAgent,
		IP:               dev.IP,
		CreatedAt:        now,
		LastActivityAt:   now,
		ExpiresAt:        expiresAt,
	}
	s.byHash[refreshHash] = id
	return id
}

// GetByID loads a session row by id.
func (s *MemoryStore) GetByID(_ context.Context, sessionID string) (Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rows[sessionID]
	if !ok {
		return Row{}, ErrSessionNotFound
	}
	return *r, nil
}

// ListByUser returns all sessions for a user, newest first.
func (s *MemoryStore) ListByUser(_ context.Context, userID string) ([]Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Row
	for _, r := range s.rows {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Rotate consumes the session matching refreshHash and creates its replacement.
func (s *MemoryStore) Rotate(_ context.Context, now time.Time, refreshHash string, newRefreshHash string, newExpiresAt time.Time, dev DeviceContext) (RotateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byHash[refreshHash]
	if !ok {
		return RotateResult{}, ErrSessionNotFound
	}
	old := s.rows[id]

	if old.RevokedAt != nil && old.ReplacedBySessionID != nil {
		s.revokeAllLocked(now, old.UserID)
		return RotateResult{}, ErrRefreshReuseDetected
	}
	if old.RevokedAt != nil {
		return RotateResult{}, ErrSessionRevoked
	}
	if !old.ExpiresAt.After(now) {
		return RotateResult{}, ErrSessionExpired
	}

	newID := s.createLocked(now, old.UserID, dev, newRefreshHash, newExpiresAt)

	revokedAt := now
	old.RevokedAt = &revokedAt
	old.LastActivityAt = now
	old.ReplacedBySessionID = &newID

	return RotateResult{Old: *old, NewSessionID: newID}, nil
}

// Touch updates last_activity_at for a session.
func (s *MemoryStore) Touch(_ context.Context, now time.Time, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.rows[sessionID]; ok {
		r.LastActivityAt = now
	}
	return nil
}

// Revoke revokes a single session (idempotent).
func (s *MemoryStore) Revoke(_ context.Context, now time.Time, sessionID string, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.rows[sessionID]; ok && r.RevokedAt == nil {
		revokedAt := now
		r.RevokedAt = &revokedAt
	}
	return nil
}

// RevokeAll revokes all sessions for a user (idempotent).
func (s *MemoryStore) RevokeAll(_ context.Context, now time.Time, userID string, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.revokeAllLocked(now, userID)
	return nil
}

func (s *MemoryStore) revokeAllLocked(now time.Time, userID string) {
	for _, r := range s.rows {
		if r.UserID == userID && r.RevokedAt == nil {
			revokedAt := now
			r.RevokedAt = &revokedAt
		}
	}
}
