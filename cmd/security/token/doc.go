// Package token computes server-side digests of opaque refresh tokens.
//
// The plain refresh token is never persisted; only its digest reaches the
// session store. With a configured key the digest is HMAC-SHA256, otherwise
// plain SHA-256 (acceptable for local development only).
package token
