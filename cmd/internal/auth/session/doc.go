// Package session implements FreeMonitor's session-bound authentication core.
//
// It provides a multi-session model per user with refresh-token rotation,
// reuse detection, and per-session/per-user revocation.
//
// Access tokens are signed JWTs (HS256) and are short-lived and
// self-contained: request-time validation never touches storage. Refresh
// tokens are opaque random strings stored as digests only; rotation is a
// single conditional update so that concurrent replays of the same token
// yield exactly one winner.
package session
