package session

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
)

// PostgresStore implements Store using PostgreSQL (freemonitor.sessions).
//
// Every operation carries a bounded timeout so a stalled database surfaces
// as a retryable server error instead of hanging the request.
type PostgresStore struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewPostgresStore creates a Postgres-backed session store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("session: nil pool")
	}
	return &PostgresStore{pool: pool, timeout: 3 * time.Second}, nil
}

func (s *PostgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

const rowColumns = `
	id, user_id, refresh_token_hash, user_agent, ip,
	created_at, last_activity_at, expires_at, revoked_at, replaced_by_session_id`

func scanRow(row pgx.Row) (Row, error) {
	var r Row
	var ua *string
	var ip net.IP

	err := row.Scan(
		&r.ID,
		&r.UserID,
		&r.RefreshTokenHash,
		&ua,
		&ip,
		&r.CreatedAt,
		&r.LastActivityAt,
		&r.ExpiresAt,
		&r.RevokedAt,
		&r.ReplacedBySessionID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Row{}, ErrSessionNotFound
	}
	if err != nil {
		return Row{}, err
	}
	if ua != nil {
		r.UserAgent = *ua
	}
	r.IP = ip
	return r, nil
}

// Create inserts a new session row and returns its ULID.
func (s *PostgresStore) Create(ctx context.Context, now time.Time, userID string, dev DeviceContext, refreshHash string, expiresAt time.Time) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	id := ulid.Make().String()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO freemonitor.sessions (
			id, user_id, refresh_token_hash, user_agent, ip,
			created_at, last_activity_at, expires_at, revoked_at,
			replaced_by_session_id, revocation_reason
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $6, $7, NULL,
			NULL, NULL
		)
	`, id, userID, refreshHash, nullIfEmpty(dev.UserAgent), dev.IP, now, expiresAt)
	if err != nil {
		return "", err
	}

	return id, nil
}

// GetByID loads a session row by id.
func (s *PostgresStore) GetByID(ctx context.Context, sessionID string) (Row, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return scanRow(s.pool.QueryRow(ctx, `
		SELECT `+rowColumns+`
		FROM freemonitor.sessions
		WHERE id = $1
	`, sessionID))
}

// ListByUser returns all sessions for a user, newest first.
func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]Row, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT `+rowColumns+`
		FROM freemonitor.sessions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Rotate consumes the session matching refreshHash and creates its replacement
// in a single transaction.
//
// The consume step is a conditional update (compare-and-swap on the
// "not revoked, not expired" predicate) so exactly one of N concurrent
// rotations for the same digest succeeds; the rest fall through to the
// classification path below.
func (s *PostgresStore) Rotate(ctx context.Context, now time.Time, refreshHash string, newRefreshHash string, newExpiresAt time.Time, dev DeviceContext) (RotateResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return RotateResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	newID := ulid.Make().String()

	old, err := scanRow(tx.QueryRow(ctx, `
		UPDATE freemonitor.sessions
		SET revoked_at = $2,
		    last_activity_at = $2,
		    replaced_by_session_id = $3,
		    revocation_reason = 'rotation'
		WHERE refresh_token_hash = $1
		  AND revoked_at IS NULL
		  AND expires_at > $2
		RETURNING `+rowColumns+`
	`, refreshHash, now, newID))
	if errors.Is(err, ErrSessionNotFound) {
		// CAS miss: classify why, inside the same transaction.
		return RotateResult{}, s.classifyRotateMiss(ctx, tx, now, refreshHash)
	}
	if err != nil {
		return RotateResult{}, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO freemonitor.sessions (
			id, user_id, refresh_token_hash, user_agent, ip,
			created_at, last_activity_at, expires_at, revoked_at,
			replaced_by_session_id, revocation_reason
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $6, $7, NULL,
			NULL, NULL
		)
	`, newID, old.UserID, newRefreshHash, nullIfEmpty(dev.UserAgent), dev.IP, now, newExpiresAt); err != nil {
		return RotateResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return RotateResult{}, err
	}

	return RotateResult{Old: old, NewSessionID: newID}, nil
}

func (s *PostgresStore) classifyRotateMiss(ctx context.Context, tx pgx.Tx, now time.Time, refreshHash string) error {
	row, err := scanRow(tx.QueryRow(ctx, `
		SELECT `+rowColumns+`
		FROM freemonitor.sessions
		WHERE refresh_token_hash = $1
	`, refreshHash))
	if err != nil {
		return err // includes ErrSessionNotFound
	}

	// A rotated token presented again is treated as theft: revoke the
	// user's entire session set before reporting reuse.
	if row.RevokedAt != nil && row.ReplacedBySessionID != nil {
		if _, err := tx.Exec(ctx, `
			UPDATE freemonitor.sessions
			SET revoked_at = COALESCE(revoked_at, $2),
			    revocation_reason = COALESCE(revocation_reason, 'reuse_detected')
			WHERE user_id = $1
		`, row.UserID, now); err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return err
		}
		return ErrRefreshReuseDetected
	}

	if row.RevokedAt != nil {
		return ErrSessionRevoked
	}
	return ErrSessionExpired
}

// Touch updates last_activity_at for a session.
func (s *PostgresStore) Touch(ctx context.Context, now time.Time, sessionID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx, `
		UPDATE freemonitor.sessions
		SET last_activity_at = $2
		WHERE id = $1
	`, sessionID, now)
	return err
}

// Revoke revokes a single session (idempotent).
func (s *PostgresStore) Revoke(ctx context.Context, now time.Time, sessionID string, reason string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx, `
		UPDATE freemonitor.sessions
		SET revoked_at = COALESCE(revoked_at, $2),
		    revocation_reason = COALESCE(revocation_reason, $3)
		WHERE id = $1
	`, sessionID, now, reason)
	return err
}

// RevokeAll revokes all sessions for a user (idempotent).
func (s *PostgresStore) RevokeAll(ctx context.Context, now time.Time, userID string, reason string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx, `
		UPDATE freemonitor.sessions
		SET revoked_at = COALESCE(revoked_at, $2),
		    revocation_reason = COALESCE(revocation_reason, $3)
		WHERE user_id = $1
	`, userID, now, reason)
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
