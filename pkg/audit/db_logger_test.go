package audit

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDBLogger(t *testing.T) (*DBLogger, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// Table and index creation at construction
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS audit_events").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_audit_events_timestamp").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_audit_events_event_type").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_audit_events_subject_id").WillReturnResult(sqlmock.NewResult(0, 0))

	logger, err := NewDBLogger(db)
	require.NoError(t, err)
	return logger, mock
}

func TestDBLoggerLog(t *testing.T) {
	logger, mock := newMockDBLogger(t)

	event := NewEvent(context.Background(), EventTypeAuthLogin, EventStatusSuccess)
	event.SubjectID = "user-42"
	event.IPAddress = "203.0.113.7"
	event.WithMetadata("attempts", 1)

	mock.ExpectExec("INSERT INTO audit_events").
		WithArgs(
			event.ID,
			event.Timestamp,
			"auth.login",
			"success",
			"user-42",
			nil,
			nil,
			"203.0.113.7",
			sqlmock.AnyArg(),
			nil,
			nil,
			nil,
			`{"attempts":1}`,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, logger.Log(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBLoggerSearch(t *testing.T) {
	logger, mock := newMockDBLogger(t)

	now := time.Now().UTC()
	columns := []string{
		"id", "timestamp", "event_type", "status", "subject_id",
		"resource_type", "resource_id", "ip_address", "request_id",
		"method", "path", "message", "metadata",
	}
	rows := sqlmock.NewRows(columns).
		AddRow("evt-1", now, "auth.login_failed", "failure", "user-42",
			nil, nil, "203.0.113.7", "req-1", "POST", "/api/auth/login",
			"bad password", `{"attempts":3}`).
		AddRow("evt-2", now.Add(-time.Minute), "ratelimit.blocked", "denied", "user-42",
			nil, nil, "203.0.113.7", "req-2", "POST", "/api/auth/login",
			nil, nil)

	mock.ExpectQuery("SELECT (.+) FROM audit_events WHERE subject_id = \\$1").
		WithArgs("user-42", 50).
		WillReturnRows(rows)

	events, err := logger.Search(context.Background(), SearchFilter{
		SubjectID: "user-42",
		Limit:     50,
	})
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, EventTypeAuthLoginFailed, events[0].EventType)
	assert.Equal(t, EventStatusFailure, events[0].Status)
	assert.Equal(t, "bad password", events[0].Message)
	assert.Equal(t, float64(3), events[0].Metadata["attempts"])

	assert.Equal(t, EventTypeRateLimitBlocked, events[1].EventType)
	assert.Empty(t, events[1].Message)
	assert.Nil(t, events[1].Metadata)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBLoggerSearchByEventTypes(t *testing.T) {
	logger, mock := newMockDBLogger(t)

	columns := []string{
		"id", "timestamp", "event_type", "status", "subject_id",
		"resource_type", "resource_id", "ip_address", "request_id",
		"method", "path", "message", "metadata",
	}
	mock.ExpectQuery("SELECT (.+) FROM audit_events WHERE event_type IN \\(\\$1, \\$2\\)").
		WithArgs("csrf.rejected", "ratelimit.blocked", 100).
		WillReturnRows(sqlmock.NewRows(columns))

	events, err := logger.Search(context.Background(), SearchFilter{
		EventTypes: []EventType{EventTypeCSRFRejected, EventTypeRateLimitBlocked},
	})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBLoggerDeleteBefore(t *testing.T) {
	logger, mock := newMockDBLogger(t)

	cutoff := time.Now().Add(-90 * 24 * time.Hour)
	mock.ExpectExec("DELETE FROM audit_events WHERE timestamp <").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 17))

	deleted, err := logger.DeleteBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(17), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
