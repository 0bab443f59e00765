package ratelimit

import (
	"net"
	"net/http"
)

// Policy decides how a request is throttled. The three answers are
// independent so behavior variations combine by composition rather than
// by overriding a base type.
type Policy interface {
	// ShouldSkip reports whether the request bypasses throttling
	// entirely. Skipped requests do not touch the counter store.
	ShouldSkip(r *http.Request) bool

	// KeyFor returns the bucket key for the request.
	KeyFor(r *http.Request) string

	// LimitFor returns the maximum number of requests allowed per
	// window for this request.
	LimitFor(r *http.Request) int
}

// AuthPolicy throttles authentication attempts per client IP.
//
// The key has the form "<ip>:auth" so a future per-account bucket can
// share the same store without collisions.
type AuthPolicy struct {
	// Skip disables throttling globally (load tests, development).
	Skip bool

	// Limit is the number of attempts allowed per window.
	Limit int

	// ClientIP extracts the caller address, honoring proxy headers
	// when the deployment trusts them.
	ClientIP func(r *http.Request) net.IP
}

// ShouldSkip implements Policy.
func (p AuthPolicy) ShouldSkip(*http.Request) bool { return p.Skip }

// KeyFor implements Policy.
func (p AuthPolicy) KeyFor(r *http.Request) string {
	ip := "unknown"
	if p.ClientIP != nil {
		if addr := p.ClientIP(r); addr != nil {
			ip = addr.String()
		}
	}
	return ip + ":auth"
}

// LimitFor implements Policy.
func (p AuthPolicy) LimitFor(*http.Request) int { return p.Limit }
