package middleware

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"strings"

	"github.com/finvault/finvault/pkg/httputil"
	"github.com/finvault/finvault/pkg/observability"
	"github.com/finvault/finvault/pkg/ratelimit"
)

// RateLimitMiddleware bounds requests per client address within the
// limiter's sliding window, keyed by the route's operation kind
type RateLimitMiddleware struct {
	limiter *ratelimit.Limiter
	logger  *observability.Logger
}

// NewRateLimitMiddleware creates a new rate limiting middleware
func NewRateLimitMiddleware(limiter *ratelimit.Limiter, logger *observability.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		logger:  logger,
	}
}

// Handler wraps an HTTP handler with rate limiting for one operation
// kind. Routes of different kinds consume independent budgets.
func (m *RateLimitMiddleware) Handler(kind string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr := ClientIP(r)

			decision := m.limiter.Admit(r.Context(), addr, kind)

			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", decision.Remaining))

			if !decision.Allowed {
				retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
				m.logger.WithField("addr", addr).
					WithField("kind", kind).
					Info("Rate limit exceeded")
				httputil.WriteTooManyRequests(w, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP derives the client address: proxy headers first, then the
// connection's remote address
func ClientIP(r *http.Request) string {
	// X-Forwarded-For may carry a chain, the first entry is the client
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.Index(forwarded, ","); idx >= 0 {
			return strings.TrimSpace(forwarded[:idx])
		}
		return strings.TrimSpace(forwarded)
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
