// Package middleware provides the HTTP access-control chain: request ID
// tagging, token verification, CSRF double-submit checking, and
// per-client rate limiting.
//
// On mutating routes the chain runs in a fixed order. Authentication
// first, so later stages know the subject. CSRF second, so a forged
// request is rejected before it consumes rate budget. Rate limiting
// last, admitting only requests that already passed both guards.
package middleware
