// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// SubjectKey contains the authenticated subject ID (string)
	// Set by: middleware.Auth after token verification
	// Required by: CSRF middleware, all protected handlers
	SubjectKey Key = "subject_id"

	// RequestIDKey contains request ID string (UUID)
	// Set by: middleware.RequestID
	// Used by: Logger, audit trail, distributed tracing
	RequestIDKey Key = "request_id"

	// LoggerKey contains *observability.Logger
	// Set by: Observability middleware
	// Used by: Handlers that need structured logging with request context
	LoggerKey Key = "logger"

	// AuditLoggerKey contains audit.Logger interface
	// Set by: api.Server request wrapper
	// Used by: Handlers that record audit events
	AuditLoggerKey Key = "audit_logger"
)

// WithSubject adds the authenticated subject ID to the context
func WithSubject(ctx context.Context, subjectID string) context.Context {
	return context.WithValue(ctx, SubjectKey, subjectID)
}

// Subject retrieves the authenticated subject ID, or "" if unauthenticated
func Subject(ctx context.Context) string {
	if s, ok := ctx.Value(SubjectKey).(string); ok {
		return s
	}
	return ""
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// RequestID retrieves the request ID, or "" if not set
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
