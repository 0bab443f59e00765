// Package password is FreeMonitor's password hashing collaborator.
//
// It exposes exactly two operations: Hash(plaintext) -> digest and
// Verify(plaintext, digest) -> bool. The rest of the system treats digests
// as opaque strings; no other package imports bcrypt directly.
package password
