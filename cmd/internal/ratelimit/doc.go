// Package ratelimit implements fixed-window request throttling for the
// authentication endpoints.
//
// The pieces compose instead of subclassing: a CounterStore counts hits
// per key and window, a Policy decides whether a request is throttled at
// all, which key buckets it, and what its limit is, and the Limiter ties
// the two together. HTTP integration lives in Middleware.
package ratelimit
