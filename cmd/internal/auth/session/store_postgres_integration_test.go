package session

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Integration tests are enabled when FM_DATABASE_URL is set and points
// at a migrated database. Without it they skip to keep local runs fast.

func mustIntegrationPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := os.Getenv("FM_DATABASE_URL")
	if dbURL == "" {
		t.Skip("FM_DATABASE_URL is not set; skipping Postgres integration test")
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	return pool
}

func mustCreateTestUser(ctx context.Context, t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()

	id := uuid.NewString()
	email := "session_it_" + strings.ReplaceAll(id, "-", "") + "@freemonitor.dev"
	_, err := pool.Exec(ctx, `
		INSERT INTO freemonitor.users (
			id, email, email_norm, password_hash, display_name,
			role, is_active, created_at, deleted_at
		) VALUES ($1, $2, $2, 'x', 'Session IT', 'user', true, now(), NULL)
	`, id, email)
	if err != nil {
		t.Fatalf("create test user: %v", err)
	}

	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM freemonitor.sessions WHERE user_id = $1`, id)
		_, _ = pool.Exec(context.Background(), `DELETE FROM freemonitor.users WHERE id = $1`, id)
	})
	return id
}

func TestPostgresStore_RotateConsumesToken(t *testing.T) {
	ctx := context.Background()
	pool := mustIntegrationPool(ctx, t)
	defer pool.Close()

	store, err := NewPostgresStore(pool)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	userID := mustCreateTestUser(ctx, t, pool)

	now := time.Now().UTC()
	dev := DeviceContext{UserAgent: "freemonitor-it/1.0"}

	_, hash1, err := newOpaqueRefreshToken(32, nil)
	if err != nil {
		t.Fatalf("newOpaqueRefreshToken: %v", err)
	}
	sid, err := store.Create(ctx, now, userID, dev, hash1, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, hash2, err := newOpaqueRefreshToken(32, nil)
	if err != nil {
		t.Fatalf("newOpaqueRefreshToken: %v", err)
	}
	res, err := store.Rotate(ctx, now.Add(time.Minute), hash1, hash2, now.Add(2*time.Hour), dev)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if res.Old.ID != sid {
		t.Fatalf("rotated wrong session: %q want %q", res.Old.ID, sid)
	}

	oldRow, err := store.GetByID(ctx, sid)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if oldRow.RevokedAt == nil {
		t.Fatalf("old session must be revoked after rotation")
	}
	if oldRow.ReplacedBySessionID == nil || *oldRow.ReplacedBySessionID != res.NewSessionID {
		t.Fatalf("old session must point at its replacement")
	}

	newRow, err := store.GetByID(ctx, res.NewSessionID)
	if err != nil {
		t.Fatalf("GetByID(new): %v", err)
	}
	if !newRow.Valid(now.Add(time.Minute)) {
		t.Fatalf("replacement session must be active")
	}
}

func TestPostgresStore_ReuseRevokesAllSessions(t *testing.T) {
	ctx := context.Background()
	pool := mustIntegrationPool(ctx, t)
	defer pool.Close()

	store, err := NewPostgresStore(pool)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	userID := mustCreateTestUser(ctx, t, pool)

	now := time.Now().UTC()
	dev := DeviceContext{UserAgent: "freemonitor-it/1.0"}

	_, hashA, _ := newOpaqueRefreshToken(32, nil)
	if _, err := store.Create(ctx, now, userID, dev, hashA, now.Add(time.Hour)); err != nil {
		t.Fatalf("Create A: %v", err)
	}
	_, hashB, _ := newOpaqueRefreshToken(32, nil)
	if _, err := store.Create(ctx, now, userID, dev, hashB, now.Add(time.Hour)); err != nil {
		t.Fatalf("Create B: %v", err)
	}

	_, hashA2, _ := newOpaqueRefreshToken(32, nil)
	if _, err := store.Rotate(ctx, now.Add(time.Minute), hashA, hashA2, now.Add(2*time.Hour), dev); err != nil {
		t.Fatalf("Rotate: %v", err)
	}

	// Replay of the consumed token trips the theft response.
	_, hashA3, _ := newOpaqueRefreshToken(32, nil)
	_, err = store.Rotate(ctx, now.Add(2*time.Minute), hashA, hashA3, now.Add(2*time.Hour), dev)
	if !errors.Is(err, ErrRefreshReuseDetected) {
		t.Fatalf("expected ErrRefreshReuseDetected, got %v", err)
	}

	rows, err := store.ListByUser(ctx, userID)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	for _, r := range rows {
		if r.RevokedAt == nil {
			t.Fatalf("session %s must be revoked after reuse detection", r.ID)
		}
	}
}

func TestPostgresStore_ExpiredTokenDoesNotRotate(t *testing.T) {
	ctx := context.Background()
	pool := mustIntegrationPool(ctx, t)
	defer pool.Close()

	store, err := NewPostgresStore(pool)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	userID := mustCreateTestUser(ctx, t, pool)

	now := time.Now().UTC()
	dev := DeviceContext{UserAgent: "freemonitor-it/1.0"}

	_, hash, _ := newOpaqueRefreshToken(32, nil)
	if _, err := store.Create(ctx, now, userID, dev, hash, now.Add(time.Hour)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, next, _ := newOpaqueRefreshToken(32, nil)
	_, err = store.Rotate(ctx, now.Add(time.Hour), hash, next, now.Add(2*time.Hour), dev)
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired at the boundary, got %v", err)
	}
}
