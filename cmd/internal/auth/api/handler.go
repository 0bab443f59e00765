package authapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"freemonitor/cmd/identity"
	"freemonitor/cmd/internal/auth/session"
	"freemonitor/cmd/internal/metrics"
)

// Handler wires HTTP auth endpoints to identity/session services.
type Handler struct {
	log *slog.Logger
	cfg Config

	users    identity.Store
	verifier *identity.Verifier
	sessions *session.Service
	metrics  *metrics.Metrics
}

// NewHandler constructs an auth Handler. The metrics argument may be nil.
func NewHandler(log *slog.Logger, cfg Config, users identity.Store, verifier *identity.Verifier, sessions *session.Service, m *metrics.Metrics) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if users == nil || verifier == nil || sessions == nil {
		return nil, errors.New("authapi: nil dependency")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}

	return &Handler{
		log:      log,
		cfg:      cfg,
		users:    users,
		verifier: verifier,
		sessions: sessions,
		metrics:  m,
	}, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/login", h.handleLogin)
	mux.HandleFunc("POST /auth/refresh", h.handleRefresh)
	mux.HandleFunc("POST /auth/logout", h.handleLogout)
	mux.HandleFunc("POST /auth/logout_all", h.handleLogoutAll)
	mux.HandleFunc("GET /auth/sessions", h.handleSessionList)
	mux.HandleFunc("DELETE /auth/sessions/{id}", h.handleSessionDelete)
	mux.HandleFunc("GET /me", h.handleMe)
}

func (h *Handler) count(endpoint, result string) {
	if h.metrics != nil {
		h.metrics.AuthRequests.WithLabelValues(endpoint, result).Inc()
	}
}

// ---- handlers ----

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.count("login", codeInvalidJSON)
		writeError(w, http.StatusBadRequest, codeInvalidJSON, "invalid request body")
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		h.count("login", codeInvalidRequest)
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "email and password are required")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	user, err := h.verifier.Verify(ctx, email, req.Password)
	if err != nil {
		if identity.IsInvalidCredentials(err) {
			// Same code for unknown account and wrong password.
			h.count("login", codeInvalidCredentials)
			writeError(w, http.StatusUnauthorized, codeInvalidCredentials, "invalid email or password")
			return
		}
		h.log.ErrorContext(ctx, "auth.login.fail", "err", err)
		h.count("login", codeStorageUnavailable)
		writeStorageUnavailable(w)
		return
	}

	issued, err := h.sessions.IssueSession(ctx, now, user, h.deviceContext(r))
	if err != nil {
		h.log.ErrorContext(ctx, "auth.login.issue_session.fail", "err", err)
		h.count("login", codeStorageUnavailable)
		writeStorageUnavailable(w)
		return
	}

	h.log.InfoContext(ctx, "auth.login.ok", "user_id", user.ID, "session_id", issued.SessionID)
	h.count("login", "ok")
	writeJSON(w, http.StatusOK, toTokenPairResponse(issued))
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.count("refresh", codeInvalidJSON)
		writeError(w, http.StatusBadRequest, codeInvalidJSON, "invalid request body")
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		h.count("refresh", codeInvalidRequest)
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "refreshToken is required")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()
	dev := h.deviceContext(r)

	// The rotation result carries the resolved owner; nothing else is
	// fetched once the old token has been consumed.
	issued, err := h.sessions.RotateRefresh(ctx, now, req.RefreshToken, dev)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrRefreshReuseDetected):
			if h.metrics != nil {
				h.metrics.RefreshReuse.Inc()
			}
			h.log.WarnContext(ctx, "auth.refresh.reuse_detected", "ip", ipLogValue(dev))
			h.count("refresh", codeInvalidRefresh)
			writeError(w, http.StatusUnauthorized, codeInvalidRefresh, "invalid refresh token")
		case errors.Is(err, session.ErrSessionNotFound),
			errors.Is(err, session.ErrSessionExpired),
			errors.Is(err, session.ErrSessionRevoked):
			h.count("refresh", codeInvalidRefresh)
			writeError(w, http.StatusUnauthorized, codeInvalidRefresh, "invalid refresh token")
		default:
			h.log.ErrorContext(ctx, "auth.refresh.fail", "err", err)
			h.count("refresh", codeStorageUnavailable)
			writeStorageUnavailable(w)
		}
		return
	}

	h.count("refresh", "ok")
	writeJSON(w, http.StatusOK, toTokenPairResponse(issued))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	if p.Dev {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	ctx := r.Context()
	if err := h.sessions.RevokeSession(ctx, time.Now().UTC(), p.SessionID); err != nil {
		h.log.ErrorContext(ctx, "auth.logout.fail", "err", err)
		h.count("logout", codeStorageUnavailable)
		writeStorageUnavailable(w)
		return
	}

	h.log.InfoContext(ctx, "auth.logout.ok", "user_id", p.UserID, "session_id", p.SessionID)
	h.count("logout", "ok")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	if p.Dev {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	ctx := r.Context()
	if err := h.sessions.RevokeAll(ctx, time.Now().UTC(), p.UserID); err != nil {
		h.log.ErrorContext(ctx, "auth.logout_all.fail", "err", err)
		h.count("logout_all", codeStorageUnavailable)
		writeStorageUnavailable(w)
		return
	}

	h.log.InfoContext(ctx, "auth.logout_all.ok", "user_id", p.UserID)
	h.count("logout_all", "ok")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSessionList(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	list, err := h.sessions.ListSessions(r.Context(), p.UserID, p.SessionID)
	if err != nil {
		h.log.ErrorContext(r.Context(), "auth.sessions.list.fail", "err", err)
		writeStorageUnavailable(w)
		return
	}

	entries := make([]sessionEntry, 0, len(list))
	for _, s := range list {
		entries = append(entries, toSessionEntry(s))
	}
	writeJSON(w, http.StatusOK, sessionListResponse{Sessions: entries})
}

func (h *Handler) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "session id is required")
		return
	}

	ctx := r.Context()
	err := h.sessions.RevokeOwned(ctx, time.Now().UTC(), p.UserID, id)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			// Foreign sessions are indistinguishable from missing ones.
			writeError(w, http.StatusNotFound, codeNotFound, "session not found")
			return
		}
		h.log.ErrorContext(ctx, "auth.sessions.delete.fail", "err", err)
		writeStorageUnavailable(w)
		return
	}

	h.log.InfoContext(ctx, "auth.sessions.delete.ok", "user_id", p.UserID, "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	if p.Dev {
		writeJSON(w, http.StatusOK, meResponse{User: userResponse{
			ID:          h.cfg.DevUser.ID,
			Email:       h.cfg.DevUser.Email,
			DisplayName: h.cfg.DevUser.Name,
			Role:        h.cfg.DevUser.Role,
		}})
		return
	}

	u, err := h.users.GetUserByID(r.Context(), p.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			writeError(w, http.StatusUnauthorized, codeUnauthenticated, "user not found")
			return
		}
		h.log.ErrorContext(r.Context(), "auth.me.fail", "err", err)
		writeStorageUnavailable(w)
		return
	}

	writeJSON(w, http.StatusOK, meResponse{User: toUserResponse(u)})
}

func ipLogValue(dev session.DeviceContext) string {
	if dev.IP == nil {
		return ""
	}
	return dev.IP.String()
}
