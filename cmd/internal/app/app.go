// Package app wires the FreeMonitor auth service runtime: config,
// logging, storage, HTTP routes, throttling and metrics.
package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"freemonitor/cmd/identity"
	authapi "freemonitor/cmd/internal/auth/api"
	"freemonitor/cmd/internal/auth/session"
	"freemonitor/cmd/internal/metrics"
	"freemonitor/cmd/internal/ratelimit"
	"freemonitor/cmd/security/password"
)

// App is the server runtime. It owns the database pool and the wiring
// between the HTTP surface and the identity/session services.
type App struct {
	cfg Config
	log Logger

	pool      *pgxpool.Pool
	dbEnabled bool

	users    identity.Store
	sessions *session.Service
	auth     *authapi.Handler
	limiter  *ratelimit.Limiter
	metrics  *metrics.Metrics
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	var (
		pool      *pgxpool.Pool
		dbEnabled bool
		users     identity.Store
		sessStore session.Store
	)

	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		users = identity.NewMemoryStore()
		sessStore = session.NewMemoryStore()
	} else {
		if cfg.DBAutoMigrate {
			if err := RunMigrations(ctx, cfg.DatabaseURL); err != nil {
				return nil, err
			}
			log.Info("db.migrations.applied")
		}

		p, err := NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		pool = p
		dbEnabled = true
		log.Info("db.enabled.postgres_store")

		idStore, err := identity.NewPostgresStore(pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		users = idStore

		ss, err := session.NewPostgresStore(pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		sessStore = ss
	}

	hasher, err := password.NewHasher(0)
	if err != nil {
		return nil, err
	}
	verifier, err := identity.NewVerifier(users, hasher)
	if err != nil {
		return nil, err
	}

	sessCfg := cfg.SessionConfig()
	tokens, err := session.NewHS256Manager(sessCfg)
	if err != nil {
		return nil, err
	}
	sessions, err := session.NewService(sessCfg, sessStore, users, tokens)
	if err != nil {
		return nil, err
	}

	m := metrics.New()

	auth, err := authapi.NewHandler(log, cfg.AuthConfig(), users, verifier, sessions, m)
	if err != nil {
		return nil, err
	}

	limiter := ratelimit.NewLimiter(
		ratelimit.NewMemoryStore(),
		cfg.AuthRatePolicy(),
		cfg.AuthRateWindow,
		log,
	)
	if cfg.AuthSkipThrottling {
		log.Warn("ratelimit.disabled", "env", cfg.Env)
	}

	a := &App{
		cfg:       cfg,
		log:       log,
		pool:      pool,
		dbEnabled: dbEnabled,
		users:     users,
		sessions:  sessions,
		auth:      auth,
		limiter:   limiter,
		metrics:   m,
	}

	if !dbEnabled && cfg.Env == "development" {
		a.seedDevFixture(ctx, hasher)
	}

	return a, nil
}

// seedDevFixture creates the well-known end-to-end login for in-memory
// development runs.
func (a *App) seedDevFixture(ctx context.Context, hasher *password.Hasher) {
	hash, err := hasher.Hash("123456")
	if err != nil {
		a.log.Error("seed.dev_fixture.fail", "err", err)
		return
	}
	u, err := a.users.CreateUser(ctx, identity.CreateUserInput{
		Email:        "e2e@freemonitor.dev",
		PasswordHash: hash,
		DisplayName:  "E2E Test User",
	})
	if err != nil {
		if !identity.IsConflict(err) {
			a.log.Error("seed.dev_fixture.fail", "err", err)
		}
		return
	}
	a.log.Info("seed.dev_fixture.ok", "user_id", u.ID, "email", u.Email)
}

// Run starts the HTTP server and blocks until context cancellation or a
// fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a)

	var handler http.Handler = mux
	handler = WithCORS(handler, a.cfg, a.log)
	handler = WithSecurityHeaders(handler)
	handler = WithRequestLogging(handler, a.log)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start",
		"addr", a.cfg.HTTPAddr,
		"url", runtimeBaseURL(a.cfg.HTTPAddr),
		"env", a.cfg.Env,
		"db_enabled", a.dbEnabled,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if a.pool != nil {
		a.pool.Close()
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// runtimeBaseURL renders a clickable URL for the startup log. Bind-all
// addresses are rewritten to loopback.
func runtimeBaseURL(addr string) string {
	host, port, err := splitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return "http://" + host + ":" + port
}

func splitHostPort(addr string) (host, port string, err error) {
	i := strings.LastIndex(addr, ":")
	if i < 0 {
		return "", "", errors.New("no port")
	}
	host = strings.Trim(addr[:i], "[]")
	port = addr[i+1:]
	return host, port, nil
}
