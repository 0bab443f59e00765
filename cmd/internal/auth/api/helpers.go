package authapi

import (
	"net"
	"net/http"
	"strings"

	"freemonitor/cmd/identity"
	"freemonitor/cmd/internal/auth/session"
)

func toUserResponse(u identity.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
		CreatedAt:   u.CreatedAt,
	}
}

func toTokenPairResponse(issued session.Issued) tokenPairResponse {
	return tokenPairResponse{
		User:             toUserResponse(issued.User),
		SessionID:        issued.SessionID,
		AccessToken:      issued.AccessToken,
		ExpiresAt:        issued.AccessExp,
		RefreshToken:     issued.RefreshToken,
		RefreshExpiresAt: issued.RefreshExp,
	}
}

func toSessionEntry(s session.Summary) sessionEntry {
	return sessionEntry{
		ID:             s.ID,
		UserAgent:      s.UserAgent,
		IPAddress:      s.IPAddress,
		CreatedAt:      s.CreatedAt,
		LastActivityAt: s.LastActivityAt,
		ExpiresAt:      s.ExpiresAt,
		Revoked:        s.Revoked,
		Current:        s.IsCurrent,
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// ClientIP resolves the caller address, honoring proxy headers only when
// the deployment trusts its fronting proxy.
func ClientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	for _, p := range strings.Split(raw, ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}

func (h *Handler) deviceContext(r *http.Request) session.DeviceContext {
	return session.DeviceContext{
		UserAgent: strings.TrimSpace(r.UserAgent()),
		IP:        ClientIP(r, h.cfg.TrustProxy),
	}
}
