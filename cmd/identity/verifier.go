package identity

import (
	"context"
	"fmt"
	"strings"
)

// PasswordHasher is the slice of the hashing collaborator the verifier needs.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) (bool, error)
}

// Verifier checks email/password credentials against the user store.
type Verifier struct {
	store  Store
	hasher PasswordHasher

	// dummyHash is compared against when the user does not exist, so a
	// lookup miss costs the same as a wrong password.
	dummyHash string
}

// NewVerifier constructs a Verifier and precomputes the timing-resistance digest.
func NewVerifier(store Store, hasher PasswordHasher) (*Verifier, error) {
	if store == nil || hasher == nil {
		return nil, fmt.Errorf("identity: verifier requires store and hasher")
	}
	dummy, err := hasher.Hash("dummy-password-for-timing-only")
	if err != nil {
		return nil, fmt.Errorf("identity: dummy hash: %w", err)
	}
	return &Verifier{store: store, hasher: hasher, dummyHash: dummy}, nil
}

// Verify resolves the user for a credential pair.
//
// All authentication failures (unknown email, inactive account, wrong
// password) collapse into ErrInvalidCredentials. Storage failures are
// returned as-is and must never be reported as a credential problem.
func (v *Verifier) Verify(ctx context.Context, email, passwd string) (User, error) {
	email = strings.TrimSpace(email)
	if email == "" || passwd == "" {
		return User{}, ErrInvalidCredentials
	}

	u, err := v.store.GetUserByEmail(ctx, email)
	if err != nil {
		if IsNotFound(err) {
			_, _ = v.hasher.Verify(passwd, v.dummyHash)
			return User{}, ErrInvalidCredentials
		}
		return User{}, fmt.Errorf("identity: lookup user: %w", err)
	}

	ok, err := v.hasher.Verify(passwd, u.PasswordHash)
	if err != nil || !ok {
		return User{}, ErrInvalidCredentials
	}

	return u, nil
}
