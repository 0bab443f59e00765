package ratelimit

import (
	"encoding/json"
	"net/http"
	"strconv"
)

type limitError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type limitErrorResponse struct {
	Error limitError `json:"error"`
}

// Middleware wraps next with the limiter. Throttled requests and
// rejections both carry the X-RateLimit-* headers; rejections answer
// 429 with the too_many_requests error code. onLimited, when non-nil,
// runs once per rejected request (metrics hook).
func Middleware(l *Limiter, onLimited func(r *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := l.Allow(r.Context(), r)

			if !res.Skipped {
				h := w.Header()
				h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
				h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
				h.Set("X-RateLimit-Reset", strconv.Itoa(res.ResetSeconds))
			}

			if !res.Allowed {
				if onLimited != nil {
					onLimited(r)
				}
				w.Header().Set("Retry-After", strconv.Itoa(res.ResetSeconds))
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(limitErrorResponse{Error: limitError{
					Code:    "too_many_requests",
					Message: "too many attempts, retry later",
				}})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
