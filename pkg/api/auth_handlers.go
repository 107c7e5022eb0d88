package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/finvault/finvault/pkg/audit"
	"github.com/finvault/finvault/pkg/auth"
	"github.com/finvault/finvault/pkg/contextkeys"
	"github.com/finvault/finvault/pkg/httputil"
	"github.com/finvault/finvault/pkg/storage"
)

// signup handles POST /api/auth/signup
func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		httputil.WriteBadRequest(w, "a valid email is required")
		return
	}
	if req.Name == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}
	if len(req.Password) < 8 {
		httputil.WriteBadRequest(w, "password must be at least 8 characters")
		return
	}

	if existing, err := s.users.FindByEmail(r.Context(), req.Email); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.WithError(err).Error("Failed to check for existing user")
		httputil.WriteInternalError(w)
		return
	} else if existing != nil {
		httputil.WriteConflict(w, "email already registered")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.WithError(err).Error("Failed to hash password")
		httputil.WriteInternalError(w)
		return
	}

	now := time.Now().UTC()
	user := &storage.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(r.Context(), user); err != nil {
		s.logger.WithError(err).Error("Failed to create user")
		httputil.WriteInternalError(w)
		return
	}

	event := audit.NewEvent(r.Context(), audit.EventTypeAuthSignup, audit.EventStatusSuccess)
	event.SubjectID = user.ID
	s.record(r, event.WithResource("user", user.ID))

	httputil.WriteCreated(w, user)
}

// login handles POST /api/auth/login
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	user, err := s.users.FindByEmail(r.Context(), req.Email)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.WithError(err).Error("Failed to look up user")
		httputil.WriteInternalError(w)
		return
	}

	// Same response for unknown email and wrong password
	if user == nil || !auth.ComparePassword(user.PasswordHash, req.Password) {
		event := audit.NewEvent(r.Context(), audit.EventTypeAuthLoginFailed, audit.EventStatusFailure)
		event.WithMetadata("email", req.Email)
		s.record(r, event)
		httputil.WriteUnauthorized(w, "invalid credentials")
		return
	}

	token, err := s.issuer.Issue(user.ID, s.tokenTTL)
	if err != nil {
		s.logger.WithError(err).Error("Failed to issue token")
		httputil.WriteInternalError(w)
		return
	}

	csrfToken, err := s.guard.Issue(r.Context(), user.ID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to issue CSRF token")
		httputil.WriteInternalError(w)
		return
	}

	event := audit.NewEvent(r.Context(), audit.EventTypeAuthLogin, audit.EventStatusSuccess)
	event.SubjectID = user.ID
	s.record(r, event)

	httputil.WriteSuccess(w, LoginResponse{
		Token:     token,
		CSRFToken: csrfToken,
		User:      user,
	})
}

// rotateCSRF handles POST /api/auth/csrf. Issuing replaces any prior
// token for the subject.
func (s *Server) rotateCSRF(w http.ResponseWriter, r *http.Request) {
	subjectID := contextkeys.Subject(r.Context())

	csrfToken, err := s.guard.Issue(r.Context(), subjectID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to rotate CSRF token")
		httputil.WriteInternalError(w)
		return
	}

	s.record(r, audit.NewEvent(r.Context(), audit.EventTypeCSRFIssued, audit.EventStatusSuccess))

	httputil.WriteSuccess(w, CSRFResponse{CSRFToken: csrfToken})
}
