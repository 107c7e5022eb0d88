package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/finvault/finvault/pkg/auth"
	"github.com/finvault/finvault/pkg/csrf"
	"github.com/finvault/finvault/pkg/observability"
	"github.com/finvault/finvault/pkg/ratelimit"
	"github.com/finvault/finvault/pkg/storage"
)

type memUserStore struct {
	mu    sync.Mutex
	users map[string]*storage.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]*storage.User)}
}

func (s *memUserStore) FindByID(_ context.Context, id string) (*storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[id]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, storage.ErrNotFound
}

func (s *memUserStore) FindByEmail(_ context.Context, email string) (*storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *memUserStore) Create(_ context.Context, user *storage.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (s *memUserStore) Update(_ context.Context, user *storage.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return storage.ErrNotFound
	}
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

type memAccountStore struct {
	mu       sync.Mutex
	accounts map[string]*storage.Account
}

func newMemAccountStore() *memAccountStore {
	return &memAccountStore{accounts: make(map[string]*storage.Account)}
}

func (s *memAccountStore) FindByID(_ context.Context, id string) (*storage.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if account, ok := s.accounts[id]; ok {
		clone := *account
		return &clone, nil
	}
	return nil, storage.ErrNotFound
}

func (s *memAccountStore) ListByUser(_ context.Context, userID string) ([]*storage.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*storage.Account
	for _, account := range s.accounts {
		if account.UserID == userID {
			clone := *account
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *memAccountStore) Create(_ context.Context, account *storage.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *account
	s.accounts[account.ID] = &clone
	return nil
}

func (s *memAccountStore) UpdateBalance(_ context.Context, id string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return storage.ErrNotFound
	}
	account.Balance += delta
	return nil
}

type memTransactionStore struct {
	mu           sync.Mutex
	transactions []*storage.Transaction
}

func newMemTransactionStore() *memTransactionStore {
	return &memTransactionStore{}
}

func (s *memTransactionStore) Create(_ context.Context, tx *storage.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *tx
	s.transactions = append(s.transactions, &clone)
	return nil
}

func (s *memTransactionStore) ListByAccount(_ context.Context, accountID string, limit int) ([]*storage.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	var out []*storage.Transaction
	for _, tx := range s.transactions {
		if tx.AccountID == accountID {
			clone := *tx
			out = append(out, &clone)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

type testEnv struct {
	server   *Server
	handler  http.Handler
	users    *memUserStore
	accounts *memAccountStore
	verifier *auth.JWTVerifier
	guard    *csrf.Guard
}

func newTestEnv(t *testing.T, rlConfig *ratelimit.Config) *testEnv {
	t.Helper()

	users := newMemUserStore()
	accounts := newMemAccountStore()
	transactions := newMemTransactionStore()

	verifier := auth.NewJWTVerifier([]byte("test-secret"))
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	guard := csrf.NewGuard(csrf.NewMemoryStore(), logger)

	counterStore, err := ratelimit.NewMemoryStore(0)
	require.NoError(t, err)
	if rlConfig == nil {
		rlConfig = ratelimit.DevelopmentConfig()
	}
	limiter := ratelimit.NewLimiter(counterStore, rlConfig, logger, nil)

	server := NewServer(ServerConfig{
		Users:        users,
		Accounts:     accounts,
		Transactions: transactions,
		Verifier:     verifier,
		Issuer:       verifier,
		TokenTTL:     time.Hour,
		Guard:        guard,
		Limiter:      limiter,
		Logger:       logger,
	})

	return &testEnv{
		server:   server,
		handler:  server.Handler(),
		users:    users,
		accounts: accounts,
		verifier: verifier,
		guard:    guard,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "203.0.113.7:51234"
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

// signupAndLogin creates a user through the API and returns the bearer
// and CSRF tokens from login
func (e *testEnv) signupAndLogin(t *testing.T, email string) (userID, token, csrfToken string) {
	t.Helper()

	rr := e.do(t, http.MethodPost, "/api/auth/signup", SignupRequest{
		Email:    email,
		Name:     "Test User",
		Password: "correct horse battery",
	}, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created storage.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	rr = e.do(t, http.MethodPost, "/api/auth/login", LoginRequest{
		Email:    email,
		Password: "correct horse battery",
	}, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var login LoginResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)
	require.NotEmpty(t, login.CSRFToken)

	return created.ID, login.Token, login.CSRFToken
}

func authed(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func mutating(token, csrfToken string) map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + token,
		"X-CSRF-Token":  csrfToken,
	}
}
