package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userRows(u *User) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "name", "password_hash", "created_at", "updated_at"}).
		AddRow(u.ID, u.Email, u.Name, u.PasswordHash, u.CreatedAt, u.UpdatedAt)
}

func TestSQLUserStore_FindByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSQLUserStore(db)
	now := time.Now()
	want := &User{ID: "u-1", Email: "ada@example.com", Name: "Ada", PasswordHash: "h", CreatedAt: now, UpdatedAt: now}

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, email, name, password_hash").
			WithArgs("ada@example.com").
			WillReturnRows(userRows(want))

		user, err := store.FindByEmail(context.Background(), "ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, "u-1", user.ID)
		assert.Equal(t, "Ada", user.Name)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, email, name, password_hash").
			WithArgs("nobody@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "password_hash", "created_at", "updated_at"}))

		_, err := store.FindByEmail(context.Background(), "nobody@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSQLUserStore_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSQLUserStore(db)
	now := time.Now()
	user := &User{ID: "u-1", Email: "ada@example.com", Name: "Ada", PasswordHash: "h", CreatedAt: now, UpdatedAt: now}

	mock.ExpectExec("INSERT INTO users").
		WithArgs(user.ID, user.Email, user.Name, user.PasswordHash, user.CreatedAt, user.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Create(context.Background(), user))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLUserStore_Update_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSQLUserStore(db)
	now := time.Now()
	user := &User{ID: "missing", Email: "x@example.com", Name: "X", PasswordHash: "h", UpdatedAt: now}

	mock.ExpectExec("UPDATE users SET").
		WithArgs(user.ID, user.Email, user.Name, user.PasswordHash, user.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, store.Update(context.Background(), user), ErrNotFound)
}

func TestSQLAccountStore_ListByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSQLAccountStore(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "user_id", "name", "number", "balance", "currency", "created_at"}).
		AddRow("a-1", "u-1", "Checking", "000123", int64(15000), "USD", now).
		AddRow("a-2", "u-1", "Savings", "000124", int64(500000), "USD", now)
	mock.ExpectQuery("SELECT id, user_id, name, number, balance").
		WithArgs("u-1").
		WillReturnRows(rows)

	accounts, err := store.ListByUser(context.Background(), "u-1")
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, int64(15000), accounts[0].Balance)
	assert.Equal(t, "Savings", accounts[1].Name)
}

func TestSQLAccountStore_UpdateBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSQLAccountStore(db)

	t.Run("applies delta", func(t *testing.T) {
		mock.ExpectExec("UPDATE accounts SET balance").
			WithArgs("a-1", int64(-2500)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, store.UpdateBalance(context.Background(), "a-1", -2500))
	})

	t.Run("unknown account", func(t *testing.T) {
		mock.ExpectExec("UPDATE accounts SET balance").
			WithArgs("missing", int64(100)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, store.UpdateBalance(context.Background(), "missing", 100), ErrNotFound)
	})
}

func TestSQLTransactionStore_ListByAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSQLTransactionStore(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "account_id", "amount", "description", "reference", "created_at"}).
		AddRow("t-1", "a-1", int64(-2500), "coffee", nil, now)
	mock.ExpectQuery("SELECT id, account_id, amount, description").
		WithArgs("a-1", 50).
		WillReturnRows(rows)

	txs, err := store.ListByAccount(context.Background(), "a-1", 0)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "", txs[0].Reference)
	assert.Equal(t, int64(-2500), txs[0].Amount)
}

func TestSQLTransactionStore_Create_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSQLTransactionStore(db)
	now := time.Now()
	tx := &Transaction{ID: "t-1", AccountID: "a-1", Amount: 100, Description: "d", CreatedAt: now}

	mock.ExpectExec("INSERT INTO transactions").
		WillReturnError(errors.New("constraint violation"))

	assert.Error(t, store.Create(context.Background(), tx))
}
