package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/finvault/finvault/pkg/observability"
)

// Config defines the sliding window and per-kind admission maximums.
// Limits may be adjusted at runtime through the setters; reads and
// writes are safe to interleave.
type Config struct {
	// Window is the sliding time window
	Window time.Duration
	// DefaultMax applies to operation kinds not present in KindMax
	DefaultMax int
	// KindMax is the maximum admissions per window for each operation kind
	KindMax map[string]int

	mu sync.RWMutex
}

// DevelopmentConfig returns the generous limits used with the local store
func DevelopmentConfig() *Config {
	return &Config{
		Window:     time.Minute,
		DefaultMax: 5000,
		KindMax: map[string]int{
			"login":       1000,
			"signup":      1000,
			"profile":     5000,
			"transaction": 5000,
		},
	}
}

// ProductionConfig returns the strict limits used with the Redis store
func ProductionConfig() *Config {
	return &Config{
		Window:     time.Minute,
		DefaultMax: 300,
		KindMax: map[string]int{
			"login":       100,
			"signup":      20,
			"profile":     60,
			"transaction": 30,
		},
	}
}

// MaxFor returns the admission maximum for the operation kind
func (c *Config) MaxFor(kind string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if max, ok := c.KindMax[kind]; ok {
		return max
	}
	return c.DefaultMax
}

// SetMax overrides the admission maximum for one operation kind
func (c *Config) SetMax(kind string, max int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.KindMax == nil {
		c.KindMax = make(map[string]int)
	}
	c.KindMax[kind] = max
}

// SetWindow overrides the sliding window size
func (c *Config) SetWindow(window time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Window = window
}

// SetDefaultMax overrides the fallback admission maximum
func (c *Config) SetDefaultMax(max int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.DefaultMax = max
}

func (c *Config) window() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Window
}

// Decision is the outcome of an admission check
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter bounds operations per (address, kind) key within a sliding window
type Limiter struct {
	store   CounterStore
	config  *Config
	logger  *observability.Logger
	metrics *observability.Metrics

	// now is replaceable in tests
	now func() time.Time
}

// NewLimiter creates a limiter over the injected counter store. Metrics
// may be nil.
func NewLimiter(store CounterStore, config *Config, logger *observability.Logger, metrics *observability.Metrics) *Limiter {
	if config == nil {
		config = DevelopmentConfig()
	}
	return &Limiter{
		store:   store,
		config:  config,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Admit decides whether one more operation of the given kind from the
// given address is allowed right now. Blocked attempts are not recorded.
//
// Any store or codec failure results in an allowed decision: fail open.
func (l *Limiter) Admit(ctx context.Context, addr, kind string) Decision {
	key := kind + ":" + addr
	max := l.config.MaxFor(kind)
	window := l.config.window()

	if locker, ok := l.store.(Locker); ok {
		locker.Lock(key)
		defer locker.Unlock(key)
	}

	now := l.now()

	stamps, err := l.store.Get(ctx, key)
	if err != nil {
		return l.failOpen("get", key, kind, max, err)
	}

	// Slide the window: keep only attempts newer than now-W. Stale entries
	// are never deleted except through this filter or store-level expiry.
	cutoff := now.Add(-window)
	recent := stamps[:0:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= max {
		retryAfter := recent[0].Add(window).Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		l.observe(kind, "blocked")
		return Decision{
			Allowed:    false,
			Limit:      max,
			Remaining:  0,
			RetryAfter: retryAfter,
		}
	}

	recent = append(recent, now)
	if err := l.store.Set(ctx, key, recent, window); err != nil {
		return l.failOpen("set", key, kind, max, err)
	}

	l.observe(kind, "allowed")
	return Decision{
		Allowed:   true,
		Limit:     max,
		Remaining: max - len(recent),
	}
}

// Window exposes the configured window size for response headers
func (l *Limiter) Window() time.Duration {
	return l.config.window()
}

func (l *Limiter) failOpen(op, key, kind string, max int, err error) Decision {
	l.logger.WithError(err).
		WithField("key", key).
		WithField("op", op).
		Warn("rate counter store failure, admitting request")
	if l.metrics != nil {
		l.metrics.RateLimitStoreErrors.WithLabelValues(op).Inc()
	}
	l.observe(kind, "failopen")
	return Decision{
		Allowed:   true,
		Limit:     max,
		Remaining: max,
	}
}

func (l *Limiter) observe(kind, decision string) {
	if l.metrics != nil {
		l.metrics.RateLimitDecisions.WithLabelValues(kind, decision).Inc()
	}
}
