package middleware

import (
	"errors"
	"net/http"

	"github.com/finvault/finvault/pkg/csrf"
	"github.com/finvault/finvault/pkg/httputil"
	"github.com/finvault/finvault/pkg/observability"
)

// CSRFHeader carries the double-submit token on mutating requests
const CSRFHeader = "X-CSRF-Token"

// CSRFMiddleware checks the double-submit token for the authenticated
// subject. It must run after AuthMiddleware.
type CSRFMiddleware struct {
	guard   *csrf.Guard
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewCSRFMiddleware creates a new CSRF middleware. Metrics may be nil.
func NewCSRFMiddleware(guard *csrf.Guard, logger *observability.Logger, metrics *observability.Metrics) *CSRFMiddleware {
	return &CSRFMiddleware{
		guard:   guard,
		logger:  logger,
		metrics: metrics,
	}
}

// Handler wraps an HTTP handler with the double-submit check
func (m *CSRFMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subjectID := Subject(r)
		if subjectID == "" {
			// Misconfigured chain, the auth stage should have run first
			httputil.WriteUnauthorized(w, "missing authorization header")
			return
		}

		presented := r.Header.Get(CSRFHeader)
		if err := m.guard.Check(r.Context(), subjectID, presented); err != nil {
			reason := "invalid"
			if errors.Is(err, csrf.ErrTokenMissing) {
				reason = "missing"
			}
			m.logger.WithField("subject_id", subjectID).
				WithField("reason", reason).
				Info("Rejected request failing CSRF check")
			if m.metrics != nil {
				m.metrics.CSRFRejectionsTotal.WithLabelValues(reason).Inc()
			}
			httputil.WriteForbidden(w, err.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}
