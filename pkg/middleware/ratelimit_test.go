package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finvault/finvault/pkg/ratelimit"
)

func newTestLimiter(t *testing.T, window time.Duration, kindMax map[string]int, defaultMax int) *ratelimit.Limiter {
	t.Helper()
	store, err := ratelimit.NewMemoryStore(0)
	require.NoError(t, err)
	cfg := &ratelimit.Config{
		Window:     window,
		DefaultMax: defaultMax,
		KindMax:    kindMax,
	}
	return ratelimit.NewLimiter(store, cfg, testLogger(), nil)
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := newTestLimiter(t, time.Minute, map[string]int{"login": 3}, 100)
	mw := NewRateLimitMiddleware(limiter, testLogger())

	handler := mw.Handler("login")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "203.0.113.7:51234"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code, "attempt %d", i+1)
		assert.Equal(t, "3", rr.Header().Get("X-RateLimit-Limit"))
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.Contains(t, rr.Body.String(), "rate limit exceeded")

	// A different client address keeps its own budget
	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "198.51.100.9:44000"
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRateLimitMiddlewareKindsAreIndependent(t *testing.T) {
	limiter := newTestLimiter(t, time.Minute, map[string]int{"login": 1, "transaction": 1}, 100)
	mw := NewRateLimitMiddleware(limiter, testLogger())

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	loginHandler := mw.Handler("login")(ok)
	txnHandler := mw.Handler("transaction")(ok)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	rr := httptest.NewRecorder()
	loginHandler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	// Login budget is exhausted, transactions are not
	rr = httptest.NewRecorder()
	loginHandler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
	req = httptest.NewRequest(http.MethodPost, "/api/transactions", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	rr = httptest.NewRecorder()
	txnHandler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "remote addr only",
			remoteAddr: "203.0.113.7:51234",
			want:       "203.0.113.7",
		},
		{
			name:       "x-forwarded-for single",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7"},
			want:       "203.0.113.7",
		},
		{
			name:       "x-forwarded-for chain takes first",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2, 10.0.0.3"},
			want:       "203.0.113.7",
		},
		{
			name:       "x-real-ip",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Real-IP": "203.0.113.7"},
			want:       "203.0.113.7",
		},
		{
			name:       "forwarded-for wins over real-ip",
			remoteAddr: "10.0.0.1:80",
			headers: map[string]string{
				"X-Forwarded-For": "203.0.113.7",
				"X-Real-IP":       "198.51.100.9",
			},
			want: "203.0.113.7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}
