package api

import (
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/finvault/finvault/pkg/audit"
	"github.com/finvault/finvault/pkg/contextkeys"
	"github.com/finvault/finvault/pkg/httputil"
	"github.com/finvault/finvault/pkg/storage"
)

// listAccounts handles GET /api/accounts
func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	subjectID := contextkeys.Subject(r.Context())

	accounts, err := s.accounts.ListByUser(r.Context(), subjectID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list accounts")
		httputil.WriteInternalError(w)
		return
	}
	if accounts == nil {
		accounts = []*storage.Account{}
	}

	httputil.WriteSuccess(w, accounts)
}

// getAccount handles GET /api/accounts/{id}
func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	account, ok := s.ownedAccount(w, r, httputil.PathVar(r, "id"))
	if !ok {
		return
	}
	httputil.WriteSuccess(w, account)
}

// createAccount handles POST /api/accounts
func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	subjectID := contextkeys.Subject(r.Context())

	var req CreateAccountRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if req.Name == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}

	account := &storage.Account{
		ID:        uuid.NewString(),
		UserID:    subjectID,
		Name:      req.Name,
		Number:    newAccountNumber(),
		Balance:   0,
		Currency:  req.Currency,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.accounts.Create(r.Context(), account); err != nil {
		s.logger.WithError(err).Error("Failed to create account")
		httputil.WriteInternalError(w)
		return
	}

	event := audit.NewEvent(r.Context(), audit.EventTypeDataAccountCreate, audit.EventStatusSuccess)
	s.record(r, event.WithResource("account", account.ID))

	httputil.WriteCreated(w, account)
}

// listTransactions handles GET /api/accounts/{id}/transactions
func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	account, ok := s.ownedAccount(w, r, httputil.PathVar(r, "id"))
	if !ok {
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			httputil.WriteBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	transactions, err := s.transactions.ListByAccount(r.Context(), account.ID, limit)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list transactions")
		httputil.WriteInternalError(w)
		return
	}
	if transactions == nil {
		transactions = []*storage.Transaction{}
	}

	httputil.WriteSuccess(w, transactions)
}

// ownedAccount loads an account and verifies it belongs to the caller.
// A foreign account gets the same 404 as a missing one.
func (s *Server) ownedAccount(w http.ResponseWriter, r *http.Request, id string) (*storage.Account, bool) {
	subjectID := contextkeys.Subject(r.Context())

	account, err := s.accounts.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteNotFound(w, "account not found")
			return nil, false
		}
		s.logger.WithError(err).Error("Failed to load account")
		httputil.WriteInternalError(w)
		return nil, false
	}

	if account.UserID != subjectID {
		httputil.WriteNotFound(w, "account not found")
		return nil, false
	}

	return account, true
}

func newAccountNumber() string {
	return fmt.Sprintf("FV-%010d", rand.Int63n(1e10))
}
