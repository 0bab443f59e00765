// Package identity holds FreeMonitor's canonical user model and the
// credential verification path used by login.
//
// Users are looked up by case-insensitive email; soft-deleted or deactivated
// accounts are invisible to authentication. The Verifier deliberately maps
// "no such user" and "wrong password" to the same error so the login endpoint
// cannot be used for account enumeration.
package identity
