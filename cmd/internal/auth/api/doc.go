// Package authapi exposes the session-bound authentication endpoints:
// login, refresh rotation, logout, concurrent-session management and the
// authenticated /me lookup. The package owns the HTTP surface only;
// credential checks live in identity and token state in session.
package authapi
