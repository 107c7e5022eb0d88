// Package storage defines the persistence interfaces the API handlers
// consume and their relational implementation. The access-control core
// never touches these directly; it only sees the CSRF and rate-counter
// store contracts in their own packages.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// User is an account holder
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Account is a bank account owned by a user. Balance is in minor units.
type Account struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Number    string    `json:"number"`
	Balance   int64     `json:"balance"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
}

// Transaction is a movement on an account. Amount is signed minor units:
// negative for debits, positive for credits.
type Transaction struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description"`
	Reference   string    `json:"reference,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserStore persists users
type UserStore interface {
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
}

// AccountStore persists accounts
type AccountStore interface {
	FindByID(ctx context.Context, id string) (*Account, error)
	ListByUser(ctx context.Context, userID string) ([]*Account, error)
	Create(ctx context.Context, account *Account) error
	UpdateBalance(ctx context.Context, id string, delta int64) error
}

// TransactionStore persists transactions
type TransactionStore interface {
	Create(ctx context.Context, tx *Transaction) error
	ListByAccount(ctx context.Context, accountID string, limit int) ([]*Transaction, error)
}
