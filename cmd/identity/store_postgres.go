package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over PostgreSQL.
//
// The pgx pool is owned by the caller; this store must NOT close it.
// Every call carries a bounded timeout so a stalled database surfaces as a
// retryable server error instead of hanging the request.
type PostgresStore struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewPostgresStore constructs a Postgres-backed user store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("identity: nil pool")
	}
	return &PostgresStore{pool: pool, timeout: 3 * time.Second}, nil
}

func (s *PostgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// CreateUser inserts a new user row. Email uniqueness is case-insensitive
// via the email_norm column.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
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

	u := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: in.PasswordHash,
		DisplayName:  in.DisplayName,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO freemonitor.users (
			id, email, email_norm, password_hash, display_name,
			role, is_active, created_at, deleted_at
		) VALUES ($1, $2, $3, $4, $5, $6, true, $7, NULL)
	`, u.ID, in.Email, email, u.PasswordHash, u.DisplayName, string(u.Role), now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrConflict
		}
		return User{}, err
	}

	return u, nil
}

// GetUserByEmail loads an active, non-deleted user by normalized email.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	norm := NormalizeEmail(email)
	if norm == "" {
		return User{}, ErrNotFound
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.scanUser(s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, display_name, role, is_active, created_at, deleted_at
		FROM freemonitor.users
		WHERE email_norm = $1
		  AND is_active = true
		  AND deleted_at IS NULL
	`, norm))
}

// GetUserByID loads a user by id regardless of active state; callers that
// care about deactivation must check IsActive/DeletedAt themselves.
func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.scanUser(s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, display_name, role, is_active, created_at, deleted_at
		FROM freemonitor.users
		WHERE id = $1
	`, id))
}

func (s *PostgresStore) scanUser(row pgx.Row) (User, error) {
	var u User
	var role string
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.DisplayName,
		&role,
		&u.IsActive,
		&u.CreatedAt,
		&u.DeletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	u.Role = ParseRole(role)
	return u, nil
}
