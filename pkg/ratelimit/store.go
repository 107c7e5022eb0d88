// Package ratelimit implements sliding-window-log rate limiting keyed by
// (client address, operation kind).
//
// The limiter reads the recorded attempt timestamps for a key, discards
// those older than the window, and blocks when the surviving count has
// reached the per-kind maximum. Blocked attempts are not recorded. Two
// counter stores exist: a Redis-backed store shared across instances
// (production) and an in-process store (development). Store selection is
// a construction-time decision, injected by the caller.
//
// The failure policy is fail-open: any error during admission (store
// unreachable, serialization failure) is logged and the request is
// allowed. A broken rate limiter must never take the service down. This
// is the opposite of the CSRF guard's fail-closed read policy, and the
// asymmetry is deliberate.
//
// Under concurrent requests for the same key against the Redis store, two
// admissions can read the same pre-append sequence and both allow,
// last-write-wins on the key. The window is best-effort, not exact.
package ratelimit

import (
	"context"
	"time"
)

// CounterStore persists the recent-attempt timestamp log per key
type CounterStore interface {
	// Get returns the recorded timestamps for the key, empty if none
	Get(ctx context.Context, key string) ([]time.Time, error)

	// Set overwrites the key's timestamps. TTL is a backstop so durable
	// stores drop idle keys on their own; local stores may ignore it.
	Set(ctx context.Context, key string, stamps []time.Time, ttl time.Duration) error
}

// Locker is implemented by stores whose read-modify-write cycle must be
// serialized in-process to avoid lost updates. The Redis store does not
// implement it: its concurrent-writer race is documented behavior.
type Locker interface {
	Lock(key string)
	Unlock(key string)
}
