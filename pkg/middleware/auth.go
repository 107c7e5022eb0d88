package middleware

import (
	"errors"
	"net/http"

	"github.com/finvault/finvault/pkg/auth"
	"github.com/finvault/finvault/pkg/contextkeys"
	"github.com/finvault/finvault/pkg/httputil"
	"github.com/finvault/finvault/pkg/observability"
)

// AuthMiddleware verifies bearer tokens and attaches the authenticated
// subject to the request context
type AuthMiddleware struct {
	verifier auth.Verifier
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewAuthMiddleware creates a new authentication middleware. Metrics may
// be nil.
func NewAuthMiddleware(verifier auth.Verifier, logger *observability.Logger, metrics *observability.Metrics) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		logger:   logger,
		metrics:  metrics,
	}
}

// Handler wraps an HTTP handler with token verification
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawToken, err := auth.ExtractBearer(r.Header.Get("Authorization"))
		if err != nil {
			m.reject(w, r, "missing_header", "missing authorization header")
			return
		}

		identity, err := m.verifier.Verify(r.Context(), rawToken)
		if err != nil {
			reason := "invalid_token"
			if errors.Is(err, auth.ErrInvalidTokenPayload) {
				reason = "invalid_payload"
			}
			m.reject(w, r, reason, "invalid or expired token")
			return
		}

		ctx := contextkeys.WithSubject(r.Context(), identity.SubjectID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) reject(w http.ResponseWriter, r *http.Request, reason, message string) {
	m.logger.WithField("path", r.URL.Path).
		WithField("reason", reason).
		Info("Rejected unauthenticated request")
	if m.metrics != nil {
		m.metrics.AuthFailuresTotal.WithLabelValues(reason).Inc()
	}
	httputil.WriteUnauthorized(w, message)
}

// Subject extracts the authenticated subject from the request, or ""
// when the request did not pass authentication
func Subject(r *http.Request) string {
	return contextkeys.Subject(r.Context())
}
