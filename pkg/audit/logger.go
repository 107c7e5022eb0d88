package audit

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/finvault/finvault/pkg/contextkeys"
)

// Logger is the interface for audit logging
type Logger interface {
	// Log records an audit event
	Log(ctx context.Context, event *Event) error

	// Close flushes any buffered events and releases resources
	Close() error
}

// WithLogger adds an audit logger to the context
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, contextkeys.AuditLoggerKey, logger)
}

// FromContext retrieves the audit logger from context, or nil
func FromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(contextkeys.AuditLoggerKey).(Logger); ok {
		return logger
	}
	return nil
}

// NewEvent creates an event stamped with an identifier and the current
// time, carrying the request identifier from the context when present
func NewEvent(ctx context.Context, eventType EventType, status EventStatus) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Status:    status,
		SubjectID: contextkeys.Subject(ctx),
		RequestID: contextkeys.RequestID(ctx),
	}
}

// WithRequest copies the request context fields onto the event
func (e *Event) WithRequest(r *http.Request, clientIP string) *Event {
	e.IPAddress = clientIP
	e.Method = r.Method
	e.Path = r.URL.Path
	return e
}

// WithResource records the resource being acted on
func (e *Event) WithResource(resourceType, resourceID string) *Event {
	e.ResourceType = resourceType
	e.ResourceID = resourceID
	return e
}

// WithMessage attaches a human-readable message
func (e *Event) WithMessage(message string) *Event {
	e.Message = message
	return e
}

// WithMetadata attaches one metadata key
func (e *Event) WithMetadata(key string, value interface{}) *Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// Record logs the event through the context's logger, if any. Used by
// handlers that should not fail the request over an audit write.
func Record(ctx context.Context, event *Event) error {
	logger := FromContext(ctx)
	if logger == nil {
		return nil
	}
	return logger.Log(ctx, event)
}
