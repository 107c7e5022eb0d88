package api

import "github.com/finvault/finvault/pkg/storage"

// SignupRequest creates a new user
type SignupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// LoginRequest authenticates a user by credentials
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued bearer token and the CSRF token the
// client must echo on mutating requests
type LoginResponse struct {
	Token     string        `json:"token"`
	CSRFToken string        `json:"csrf_token"`
	User      *storage.User `json:"user"`
}

// CSRFResponse carries a freshly rotated CSRF token
type CSRFResponse struct {
	CSRFToken string `json:"csrf_token"`
}

// ProfileUpdateRequest changes the caller's profile
type ProfileUpdateRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CreateAccountRequest opens a new account for the caller
type CreateAccountRequest struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

// TransferRequest moves funds between two accounts. Amount is in minor
// units and must be positive; the source account must belong to the
// caller.
type TransferRequest struct {
	FromAccountID string `json:"from_account_id"`
	ToAccountID   string `json:"to_account_id"`
	Amount        int64  `json:"amount"`
	Description   string `json:"description"`
	Reference     string `json:"reference,omitempty"`
}

// TransferResponse reports the created ledger entries
type TransferResponse struct {
	Debit  *storage.Transaction `json:"debit"`
	Credit *storage.Transaction `json:"credit"`
}
