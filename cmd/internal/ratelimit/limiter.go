package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Result describes one throttling decision.
type Result struct {
	Allowed bool

	// Limit and Remaining describe the bucket after this request was
	// counted. Remaining never goes below zero.
	Limit     int
	Remaining int

	// ResetSeconds is the whole number of seconds until the current
	// window ends, rounded up and at least 1 for an active window.
	ResetSeconds int

	// Skipped is set when the policy bypassed throttling; the counter
	// store was not touched and the header fields are zero.
	Skipped bool
}

// Limiter applies a Policy against a CounterStore.
type Limiter struct {
	store  CounterStore
	policy Policy
	window time.Duration
	log    *slog.Logger
	now    func() time.Time
}

// NewLimiter builds a Limiter. A nil logger discards log output.
func NewLimiter(store CounterStore, policy Policy, window time.Duration, log *slog.Logger) *Limiter {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		store:  store,
		policy: policy,
		window: window,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Allow counts the request and reports whether it may proceed.
//
// Rejected requests still consume a slot: hammering a full bucket keeps
// it full instead of resetting it. If the counter store fails the
// limiter fails open so an unavailable throttle never blocks logins.
func (l *Limiter) Allow(ctx context.Context, r *http.Request) Result {
	if l.policy.ShouldSkip(r) {
		return Result{Allowed: true, Skipped: true}
	}

	limit := l.policy.LimitFor(r)
	if limit <= 0 {
		return Result{Allowed: true, Skipped: true}
	}

	key := l.policy.KeyFor(r)
	now := l.now()

	count, reset, err := l.store.Incr(ctx, key, l.window, now)
	if err != nil {
		l.log.ErrorContext(ctx, "ratelimit.store.fail", "key", key, "err", err)
		return Result{Allowed: true, Skipped: true}
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	resetSeconds := int((reset.Sub(now) + time.Second - 1) / time.Second)
	if resetSeconds < 1 {
		resetSeconds = 1
	}

	return Result{
		Allowed:      count <= limit,
		Limit:        limit,
		Remaining:    remaining,
		ResetSeconds: resetSeconds,
	}
}
