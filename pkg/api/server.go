package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/finvault/finvault/pkg/audit"
	"github.com/finvault/finvault/pkg/auth"
	"github.com/finvault/finvault/pkg/csrf"
	"github.com/finvault/finvault/pkg/middleware"
	"github.com/finvault/finvault/pkg/observability"
	"github.com/finvault/finvault/pkg/ratelimit"
	"github.com/finvault/finvault/pkg/storage"
)

// TokenIssuer mints bearer tokens at login
type TokenIssuer interface {
	Issue(subjectID string, ttl time.Duration) (string, error)
}

// ServerConfig wires the server's collaborators
type ServerConfig struct {
	Users        storage.UserStore
	Accounts     storage.AccountStore
	Transactions storage.TransactionStore

	Verifier auth.Verifier
	Issuer   TokenIssuer
	TokenTTL time.Duration

	Guard   *csrf.Guard
	Limiter *ratelimit.Limiter

	Logger  *observability.Logger
	Metrics *observability.Metrics
	Audit   audit.Logger
}

// Server represents the banking API server
type Server struct {
	router *mux.Router

	users        storage.UserStore
	accounts     storage.AccountStore
	transactions storage.TransactionStore

	issuer   TokenIssuer
	tokenTTL time.Duration
	guard    *csrf.Guard

	logger  *observability.Logger
	metrics *observability.Metrics
	audit   audit.Logger

	authMW *middleware.AuthMiddleware
	csrfMW *middleware.CSRFMiddleware
	rlMW   *middleware.RateLimitMiddleware
}

// NewServer creates the API server and configures its routes
func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		router:       mux.NewRouter(),
		users:        cfg.Users,
		accounts:     cfg.Accounts,
		transactions: cfg.Transactions,
		issuer:       cfg.Issuer,
		tokenTTL:     cfg.TokenTTL,
		guard:        cfg.Guard,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		audit:        cfg.Audit,
		authMW:       middleware.NewAuthMiddleware(cfg.Verifier, cfg.Logger, cfg.Metrics),
		csrfMW:       middleware.NewCSRFMiddleware(cfg.Guard, cfg.Logger, cfg.Metrics),
		rlMW:         middleware.NewRateLimitMiddleware(cfg.Limiter, cfg.Logger),
	}

	if s.tokenTTL <= 0 {
		s.tokenTTL = time.Hour
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes. Unauthenticated routes
// are rate limited by kind; mutating authenticated routes run the full
// chain in order: token check, CSRF check, rate limit.
func (s *Server) setupRoutes() {
	// Credential routes, no bearer token yet
	s.route("/api/auth/signup", s.signup, "POST", s.rlMW.Handler("signup"))
	s.route("/api/auth/login", s.login, "POST", s.rlMW.Handler("login"))

	// CSRF rotation for an authenticated subject
	s.route("/api/auth/csrf", s.rotateCSRF, "POST", s.authMW.Handler)

	// Profile
	s.route("/api/user/profile", s.getProfile, "GET", s.authMW.Handler)
	s.route("/api/user/profile", s.updateProfile, "PUT",
		s.authMW.Handler, s.csrfMW.Handler, s.rlMW.Handler("profile"))

	// Accounts
	s.route("/api/accounts", s.listAccounts, "GET", s.authMW.Handler)
	s.route("/api/accounts", s.createAccount, "POST",
		s.authMW.Handler, s.csrfMW.Handler, s.rlMW.Handler("profile"))
	s.route("/api/accounts/{id}", s.getAccount, "GET", s.authMW.Handler)
	s.route("/api/accounts/{id}/transactions", s.listTransactions, "GET", s.authMW.Handler)

	// Transfers
	s.route("/api/transactions", s.createTransfer, "POST",
		s.authMW.Handler, s.csrfMW.Handler, s.rlMW.Handler("transaction"))
}

func (s *Server) route(path string, handler http.HandlerFunc, method string, wrappers ...func(http.Handler) http.Handler) {
	s.router.Handle(path, middleware.Chain(handler, wrappers...)).Methods(method)
}

// Handler returns the server's handler with the outer layers applied:
// panic recovery, request tagging, metrics, and the audit logger made
// available to handlers through the context
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	if s.audit != nil {
		inner := h
		h = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			inner.ServeHTTP(w, r.WithContext(audit.WithLogger(r.Context(), s.audit)))
		})
	}
	if s.metrics != nil {
		h = s.metrics.HTTPMiddleware(h)
	}
	h = middleware.RequestID(h)
	h = observability.PanicRecoveryMiddleware(s.logger)(h)
	return h
}

// Router exposes the bare router for tests
func (s *Server) Router() *mux.Router {
	return s.router
}

// record writes an audit event, logging but not propagating failures.
// The guarded operation has already succeeded or failed on its own.
func (s *Server) record(r *http.Request, event *audit.Event) {
	if s.audit == nil {
		return
	}
	event.WithRequest(r, middleware.ClientIP(r))
	if err := s.audit.Log(r.Context(), event); err != nil {
		s.logger.WithError(err).Warn("Failed to write audit event")
	}
}
