package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/finvault/finvault/pkg/audit"
	"github.com/finvault/finvault/pkg/contextkeys"
	"github.com/finvault/finvault/pkg/httputil"
	"github.com/finvault/finvault/pkg/storage"
)

// getProfile handles GET /api/user/profile
func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	subjectID := contextkeys.Subject(r.Context())

	user, err := s.users.FindByID(r.Context(), subjectID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteNotFound(w, "user not found")
			return
		}
		s.logger.WithError(err).Error("Failed to load profile")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, user)
}

// updateProfile handles PUT /api/user/profile
func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	subjectID := contextkeys.Subject(r.Context())

	var req ProfileUpdateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Name == "" && req.Email == "" {
		httputil.WriteBadRequest(w, "nothing to update")
		return
	}
	if req.Email != "" && !strings.Contains(req.Email, "@") {
		httputil.WriteBadRequest(w, "a valid email is required")
		return
	}

	user, err := s.users.FindByID(r.Context(), subjectID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteNotFound(w, "user not found")
			return
		}
		s.logger.WithError(err).Error("Failed to load profile")
		httputil.WriteInternalError(w)
		return
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.users.Update(r.Context(), user); err != nil {
		s.logger.WithError(err).Error("Failed to update profile")
		httputil.WriteInternalError(w)
		return
	}

	event := audit.NewEvent(r.Context(), audit.EventTypeDataProfileUpdate, audit.EventStatusSuccess)
	s.record(r, event.WithResource("user", user.ID))

	httputil.WriteSuccess(w, user)
}
