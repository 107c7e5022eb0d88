package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DBLogger implements audit logging to the relational database
type DBLogger struct {
	db *sql.DB
}

// NewDBLogger creates a new database-based audit logger
func NewDBLogger(db *sql.DB) (*DBLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	logger := &DBLogger{db: db}

	if err := logger.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure audit_events table: %w", err)
	}

	return logger, nil
}

// ensureTable creates the audit_events table if it doesn't exist. The
// DDL must be valid for both the postgres and sqlite drivers.
func (l *DBLogger) ensureTable() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS audit_events (
			id            TEXT PRIMARY KEY,
			timestamp     TIMESTAMP NOT NULL,
			event_type    TEXT NOT NULL,
			status        TEXT NOT NULL,
			subject_id    TEXT,
			resource_type TEXT,
			resource_id   TEXT,
			ip_address    TEXT,
			request_id    TEXT,
			method        TEXT,
			path          TEXT,
			message       TEXT,
			metadata      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_events_timestamp ON audit_events(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_events_event_type ON audit_events(event_type)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_events_subject_id ON audit_events(subject_id)`,
	}

	for _, stmt := range statements {
		if _, err := l.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Log logs an audit event to the database
func (l *DBLogger) Log(ctx context.Context, event *Event) error {
	var metadataJSON []byte
	if event.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	query := `
		INSERT INTO audit_events (
			id, timestamp, event_type, status, subject_id,
			resource_type, resource_id, ip_address, request_id,
			method, path, message, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := l.db.ExecContext(ctx, query,
		event.ID,
		event.Timestamp,
		string(event.EventType),
		string(event.Status),
		nullable(event.SubjectID),
		nullable(event.ResourceType),
		nullable(event.ResourceID),
		nullable(event.IPAddress),
		nullable(event.RequestID),
		nullable(event.Method),
		nullable(event.Path),
		nullable(event.Message),
		nullableBytes(metadataJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}

	return nil
}

// Search queries the audit trail with the given filters, newest first
func (l *DBLogger) Search(ctx context.Context, filter SearchFilter) ([]*Event, error) {
	var conditions []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.StartTime != nil {
		conditions = append(conditions, "timestamp >= "+arg(*filter.StartTime))
	}
	if filter.EndTime != nil {
		conditions = append(conditions, "timestamp <= "+arg(*filter.EndTime))
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, "subject_id = "+arg(filter.SubjectID))
	}
	if filter.IPAddress != "" {
		conditions = append(conditions, "ip_address = "+arg(filter.IPAddress))
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = "+arg(string(*filter.Status)))
	}
	if len(filter.EventTypes) > 0 {
		placeholders := make([]string, len(filter.EventTypes))
		for i, et := range filter.EventTypes {
			placeholders[i] = arg(string(et))
		}
		conditions = append(conditions, "event_type IN ("+strings.Join(placeholders, ", ")+")")
	}

	query := `
		SELECT id, timestamp, event_type, status, subject_id,
		       resource_type, resource_id, ip_address, request_id,
		       method, path, message, metadata
		FROM audit_events`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT " + arg(limit)
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

func scanEvent(rows *sql.Rows) (*Event, error) {
	var event Event
	var eventType, status string
	var subjectID, resourceType, resourceID sql.NullString
	var ipAddress, requestID, method, path, message, metadata sql.NullString

	err := rows.Scan(
		&event.ID,
		&event.Timestamp,
		&eventType,
		&status,
		&subjectID,
		&resourceType,
		&resourceID,
		&ipAddress,
		&requestID,
		&method,
		&path,
		&message,
		&metadata,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan audit event: %w", err)
	}

	event.EventType = EventType(eventType)
	event.Status = EventStatus(status)
	event.SubjectID = subjectID.String
	event.ResourceType = resourceType.String
	event.ResourceID = resourceID.String
	event.IPAddress = ipAddress.String
	event.RequestID = requestID.String
	event.Method = method.String
	event.Path = path.String
	event.Message = message.String

	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &event.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &event, nil
}

// DeleteBefore removes events older than the cutoff, returning the
// number of rows deleted. Used by the retention job after archival.
func (l *DBLogger) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := l.db.ExecContext(ctx, "DELETE FROM audit_events WHERE timestamp < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete audit events: %w", err)
	}
	return result.RowsAffected()
}

// Close is a no-op; the database handle is owned by the caller
func (l *DBLogger) Close() error {
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableBytes(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
