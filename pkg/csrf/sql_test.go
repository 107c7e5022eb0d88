package csrf

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLStore_Find(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSQLStore(db)
	now := time.Now()

	t.Run("found", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"subject_id", "token", "created_at", "updated_at"}).
			AddRow("user-123", "tok-1", now, now)
		mock.ExpectQuery("SELECT subject_id, token, created_at, updated_at").
			WithArgs("user-123").
			WillReturnRows(rows)

		rec, err := store.Find(context.Background(), "user-123")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "tok-1", rec.Token)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no record", func(t *testing.T) {
		mock.ExpectQuery("SELECT subject_id, token, created_at, updated_at").
			WithArgs("nobody").
			WillReturnRows(sqlmock.NewRows([]string{"subject_id", "token", "created_at", "updated_at"}))

		rec, err := store.Find(context.Background(), "nobody")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("query error", func(t *testing.T) {
		mock.ExpectQuery("SELECT subject_id, token, created_at, updated_at").
			WithArgs("user-123").
			WillReturnError(errors.New("connection reset"))

		_, err := store.Find(context.Background(), "user-123")
		assert.Error(t, err)
	})
}

func TestSQLStore_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSQLStore(db)
	now := time.Now()

	t.Run("inserts and returns record", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"subject_id", "token", "created_at", "updated_at"}).
			AddRow("user-123", "tok-2", now, now)
		mock.ExpectQuery("INSERT INTO csrf_tokens").
			WithArgs("user-123", "tok-2", now).
			WillReturnRows(rows)

		rec, err := store.Upsert(context.Background(), "user-123", "tok-2", now)
		require.NoError(t, err)
		assert.Equal(t, "tok-2", rec.Token)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("write error propagates", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO csrf_tokens").
			WithArgs("user-123", "tok-3", now).
			WillReturnError(errors.New("disk full"))

		_, err := store.Upsert(context.Background(), "user-123", "tok-3", now)
		assert.Error(t, err)
	})
}
