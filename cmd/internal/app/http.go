package app

import (
	"net/http"
	"strings"
	"time"

	"freemonitor/cmd/internal/ratelimit"
)

func registerHTTP(mux *http.ServeMux, a *App) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.ReadinessRequireDB && !a.dbEnabled {
			http.Error(w, "db not configured", http.StatusServiceUnavailable)
			return
		}

		if a.dbEnabled && a.pool != nil {
			if err := PingDB(r.Context(), a.pool, 2*time.Second); err != nil {
				a.log.Info("readyz.db.not_ready", "err", err)
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	mux.Handle("GET /metrics", a.metrics.Handler())

	// Auth routes live behind the guard; login and refresh additionally
	// go through the credential-attempt rate limiter.
	authMux := http.NewServeMux()
	a.auth.Register(authMux)
	guarded := a.auth.Guard(authMux)

	throttled := ratelimit.Middleware(a.limiter, a.onRateLimited)(guarded)
	mux.Handle("POST /auth/login", throttled)
	mux.Handle("POST /auth/refresh", throttled)

	mux.Handle("/auth/", guarded)
	mux.Handle("/me", guarded)
}

func (a *App) onRateLimited(r *http.Request) {
	a.metrics.RateLimited.Inc()
	endpoint := strings.TrimPrefix(r.URL.Path, "/auth/")
	a.metrics.AuthRequests.WithLabelValues(endpoint, "too_many_requests").Inc()
	a.log.Warn("ratelimit.rejected", "path", r.URL.Path, "remote", r.RemoteAddr)
}
