// Package api exposes the banking HTTP surface. Read routes require a
// verified bearer token; mutating routes additionally pass the CSRF
// double-submit check and per-client rate limiting before reaching
// their handler.
package api
