package identity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store used when no database is configured
// and by unit tests. Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]User
	byEmail map[string]string // email_norm -> id
}

// NewMemoryStore creates an empty in-memory user store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]User),
		byEmail: make(map[string]string),
	}
}

// CreateUser inserts a user, enforcing case-insensitive email uniqueness.
func (s *MemoryStore) CreateUser(_ context.Context, in CreateUserInput) (User, error) {
	email := NormalizeEmail(in.Email)
	if email == "" || in.PasswordHash == "" {
		return User{}, ErrInvalidInput
	}
	role := in.Role
	if role == "" {
		role = RoleUser
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[email]; exists {
		return User{}, ErrConflict
	}

	u := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: in.PasswordHash,
		DisplayName:  in.DisplayName,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
	}
	s.byID[u.ID] = u
	s.byEmail[email] = u.ID
	return u, nil
}

// GetUserByEmail resolves an active, non-deleted user by normalized email.
func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (User, error) {
	norm := NormalizeEmail(email)

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[norm]
	if !ok {
		return User{}, ErrNotFound
	}
	u := s.byID[id]
	if !u.IsActive || u.DeletedAt != nil {
		return User{}, ErrNotFound
	}
	return u, nil
}

// GetUserByID loads a user by id.
func (s *MemoryStore) GetUserByID(_ context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

// Deactivate flips IsActive for a user. Test helper.
func (s *MemoryStore) Deactivate(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.byID[id]; ok {
		u.IsActive = false
		s.byID[id] = u
	}
}
