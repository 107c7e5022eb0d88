package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Drivers: postgres for the production profile, sqlite for development.
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Open opens a database handle for the given driver ("postgres" or
// "sqlite3") and DSN, verifies connectivity, and applies the schema.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := applySchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func applySchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			name          TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			created_at    TIMESTAMP NOT NULL,
			updated_at    TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS accounts (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id),
			name       TEXT NOT NULL,
			number     TEXT NOT NULL UNIQUE,
			balance    BIGINT NOT NULL DEFAULT 0,
			currency   TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id          TEXT PRIMARY KEY,
			account_id  TEXT NOT NULL REFERENCES accounts(id),
			amount      BIGINT NOT NULL,
			description TEXT NOT NULL,
			reference   TEXT,
			created_at  TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS csrf_tokens (
			subject_id TEXT PRIMARY KEY,
			token      TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// SQLUserStore implements UserStore over database/sql
type SQLUserStore struct {
	db *sql.DB
}

// NewSQLUserStore creates a user store over an open database handle
func NewSQLUserStore(db *sql.DB) *SQLUserStore {
	return &SQLUserStore{db: db}
}

func (s *SQLUserStore) FindByID(ctx context.Context, id string) (*User, error) {
	return s.findOne(ctx, `
		SELECT id, email, name, password_hash, created_at, updated_at
		FROM users WHERE id = $1
	`, id)
}

func (s *SQLUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.findOne(ctx, `
		SELECT id, email, name, password_hash, created_at, updated_at
		FROM users WHERE email = $1
	`, email)
}

func (s *SQLUserStore) findOne(ctx context.Context, query, arg string) (*User, error) {
	user := &User{}
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}
	return user, nil
}

func (s *SQLUserStore) Create(ctx context.Context, user *User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, user.ID, user.Email, user.Name, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *SQLUserStore) Update(ctx context.Context, user *User) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET email = $2, name = $3, password_hash = $4, updated_at = $5
		WHERE id = $1
	`, user.ID, user.Email, user.Name, user.PasswordHash, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// SQLAccountStore implements AccountStore over database/sql
type SQLAccountStore struct {
	db *sql.DB
}

// NewSQLAccountStore creates an account store over an open database handle
func NewSQLAccountStore(db *sql.DB) *SQLAccountStore {
	return &SQLAccountStore{db: db}
}

func (s *SQLAccountStore) FindByID(ctx context.Context, id string) (*Account, error) {
	account := &Account{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, number, balance, currency, created_at
		FROM accounts WHERE id = $1
	`, id).Scan(&account.ID, &account.UserID, &account.Name, &account.Number,
		&account.Balance, &account.Currency, &account.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("account lookup failed: %w", err)
	}
	return account, nil
}

func (s *SQLAccountStore) ListByUser(ctx context.Context, userID string) ([]*Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, number, balance, currency, created_at
		FROM accounts WHERE user_id = $1 ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("account listing failed: %w", err)
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		account := &Account{}
		if err := rows.Scan(&account.ID, &account.UserID, &account.Name, &account.Number,
			&account.Balance, &account.Currency, &account.CreatedAt); err != nil {
			return nil, fmt.Errorf("account scan failed: %w", err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (s *SQLAccountStore) Create(ctx context.Context, account *Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, user_id, name, number, balance, currency, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, account.ID, account.UserID, account.Name, account.Number,
		account.Balance, account.Currency, account.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (s *SQLAccountStore) UpdateBalance(ctx context.Context, id string, delta int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET balance = balance + $2 WHERE id = $1
	`, id, delta)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// SQLTransactionStore implements TransactionStore over database/sql
type SQLTransactionStore struct {
	db *sql.DB
}

// NewSQLTransactionStore creates a transaction store over an open database handle
func NewSQLTransactionStore(db *sql.DB) *SQLTransactionStore {
	return &SQLTransactionStore{db: db}
}

func (s *SQLTransactionStore) Create(ctx context.Context, tx *Transaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, account_id, amount, description, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, tx.ID, tx.AccountID, tx.Amount, tx.Description, tx.Reference, tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (s *SQLTransactionStore) ListByAccount(ctx context.Context, accountID string, limit int) ([]*Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, amount, description, reference, created_at
		FROM transactions WHERE account_id = $1
		ORDER BY created_at DESC LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("transaction listing failed: %w", err)
	}
	defer rows.Close()

	var txs []*Transaction
	for rows.Next() {
		tx := &Transaction{}
		var ref sql.NullString
		if err := rows.Scan(&tx.ID, &tx.AccountID, &tx.Amount, &tx.Description, &ref, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("transaction scan failed: %w", err)
		}
		tx.Reference = ref.String
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}
