package authapi

import (
	"context"
	"net/http"
	"time"
)

// Principal is the authenticated caller attached to request contexts by
// the guard.
type Principal struct {
	UserID    string
	Email     string
	SessionID string

	// Dev marks a principal injected by the development bypass. Such
	// principals have no backing user row or session.
	Dev bool
}

type principalKey struct{}

// PrincipalFrom extracts the authenticated principal, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// publicRoutes is the fixed set of method+path combinations the guard
// lets through without a token. Everything else requires a valid access
// token; new public endpoints must be added here explicitly.
var publicRoutes = map[string]struct{}{
	"POST /auth/login":   {},
	"POST /auth/refresh": {},
}

// Guard enforces access-token authentication on every route not listed
// in publicRoutes. Verification is purely cryptographic; no storage
// lookup happens per request.
//
// In the "development" environment any request that does not resolve a
// principal (no bearer token, or a token that fails verification) is
// served as the configured DevUser instead of being rejected. A valid
// token always wins over the bypass, and outside development a failed
// verification is a plain 401.
func (h *Handler) Guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := publicRoutes[r.Method+" "+r.URL.Path]; ok {
			next.ServeHTTP(w, r)
			return
		}

		token := bearerToken(r)
		if token != "" {
			claims, err := h.sessions.VerifyAccess(token, time.Now().UTC())
			if err == nil {
				p := Principal{
					UserID:    claims.UserID,
					Email:     claims.Email,
					SessionID: claims.SessionID,
				}
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, p)))
				return
			}
		}

		if h.cfg.Env == "development" && h.cfg.DevUser.ID != "" {
			p := Principal{
				UserID: h.cfg.DevUser.ID,
				Email:  h.cfg.DevUser.Email,
				Dev:    true,
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, p)))
			return
		}

		if token == "" {
			writeError(w, http.StatusUnauthorized, codeUnauthenticated, "missing bearer token")
			return
		}
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "invalid or expired token")
	})
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (Principal, bool) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "missing bearer token")
		return Principal{}, false
	}
	return p, true
}
