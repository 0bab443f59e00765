// Command seed creates the well-known end-to-end login fixture in the
// configured database. It is idempotent: re-running against a seeded
// database is a no-op.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"freemonitor/cmd/identity"
	"freemonitor/cmd/internal/app"
	"freemonitor/cmd/security/password"
)

const (
	fixtureEmail    = "e2e@freemonitor.dev"
	fixturePassword = "123456"
	fixtureName     = "E2E Test User"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg.LogLevel, cfg.LogFormat)

	if cfg.DatabaseURL == "" {
		logger.Error("seed.no_database", "hint", "set FM_DATABASE_URL")
		return nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.DBAutoMigrate {
		if err := app.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
			return err
		}
	}

	pool, err := app.NewDBPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	users, err := identity.NewPostgresStore(pool)
	if err != nil {
		return err
	}

	hasher, err := password.NewHasher(0)
	if err != nil {
		return err
	}
	hash, err := hasher.Hash(fixturePassword)
	if err != nil {
		return err
	}

	u, err := users.CreateUser(ctx, identity.CreateUserInput{
		Email:        fixtureEmail,
		PasswordHash: hash,
		DisplayName:  fixtureName,
	})
	if err != nil {
		if identity.IsConflict(err) {
			logger.Info("seed.exists", "email", fixtureEmail)
			return nil
		}
		return err
	}

	logger.Info("seed.created", "user_id", u.ID, "email", u.Email)
	return nil
}
