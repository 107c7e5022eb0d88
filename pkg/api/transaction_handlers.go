package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/finvault/finvault/pkg/audit"
	"github.com/finvault/finvault/pkg/contextkeys"
	"github.com/finvault/finvault/pkg/httputil"
	"github.com/finvault/finvault/pkg/storage"
)

// createTransfer handles POST /api/transactions. The source account
// must belong to the caller and hold sufficient funds.
func (s *Server) createTransfer(w http.ResponseWriter, r *http.Request) {
	subjectID := contextkeys.Subject(r.Context())

	var req TransferRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if req.FromAccountID == "" || req.ToAccountID == "" {
		httputil.WriteBadRequest(w, "from_account_id and to_account_id are required")
		return
	}
	if req.FromAccountID == req.ToAccountID {
		httputil.WriteBadRequest(w, "cannot transfer to the same account")
		return
	}
	if req.Amount <= 0 {
		httputil.WriteBadRequest(w, "amount must be positive")
		return
	}

	from, ok := s.ownedAccount(w, r, req.FromAccountID)
	if !ok {
		return
	}

	to, err := s.accounts.FindByID(r.Context(), req.ToAccountID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteNotFound(w, "destination account not found")
			return
		}
		s.logger.WithError(err).Error("Failed to load destination account")
		httputil.WriteInternalError(w)
		return
	}

	if from.Balance < req.Amount {
		event := audit.NewEvent(r.Context(), audit.EventTypeDataTransfer, audit.EventStatusFailure)
		event.WithResource("account", from.ID).WithMessage("insufficient funds")
		s.record(r, event)
		httputil.WriteBadRequest(w, "insufficient funds")
		return
	}

	now := time.Now().UTC()
	description := req.Description
	if description == "" {
		description = "transfer"
	}

	debit := &storage.Transaction{
		ID:          uuid.NewString(),
		AccountID:   from.ID,
		Amount:      -req.Amount,
		Description: description,
		Reference:   req.Reference,
		CreatedAt:   now,
	}
	credit := &storage.Transaction{
		ID:          uuid.NewString(),
		AccountID:   to.ID,
		Amount:      req.Amount,
		Description: description,
		Reference:   req.Reference,
		CreatedAt:   now,
	}

	if err := s.accounts.UpdateBalance(r.Context(), from.ID, -req.Amount); err != nil {
		s.logger.WithError(err).Error("Failed to debit source account")
		httputil.WriteInternalError(w)
		return
	}
	if err := s.accounts.UpdateBalance(r.Context(), to.ID, req.Amount); err != nil {
		// Roll the debit back so balances stay consistent
		if rbErr := s.accounts.UpdateBalance(r.Context(), from.ID, req.Amount); rbErr != nil {
			s.logger.WithError(rbErr).
				WithField("account_id", from.ID).
				Error("Failed to roll back debit")
		}
		s.logger.WithError(err).Error("Failed to credit destination account")
		httputil.WriteInternalError(w)
		return
	}

	if err := s.transactions.Create(r.Context(), debit); err != nil {
		s.logger.WithError(err).Error("Failed to record debit")
		httputil.WriteInternalError(w)
		return
	}
	if err := s.transactions.Create(r.Context(), credit); err != nil {
		s.logger.WithError(err).Error("Failed to record credit")
		httputil.WriteInternalError(w)
		return
	}

	event := audit.NewEvent(r.Context(), audit.EventTypeDataTransfer, audit.EventStatusSuccess)
	event.SubjectID = subjectID
	event.WithResource("account", from.ID).WithMetadata("amount", req.Amount)
	s.record(r, event)

	httputil.WriteCreated(w, TransferResponse{Debit: debit, Credit: credit})
}
