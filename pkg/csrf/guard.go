package csrf

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/finvault/finvault/pkg/observability"
)

// Guard checks presented CSRF tokens against the store
type Guard struct {
	store  Store
	logger *observability.Logger
}

// NewGuard creates a guard over the given store
func NewGuard(store Store, logger *observability.Logger) *Guard {
	return &Guard{
		store:  store,
		logger: logger,
	}
}

// Issue generates a fresh token for the subject and stores it, replacing
// any previous token. Store failures propagate: the caller turns them into
// a 500-class response.
func (g *Guard) Issue(ctx context.Context, subjectID string) (string, error) {
	token := uuid.NewString()
	if _, err := g.store.Upsert(ctx, subjectID, token, time.Now()); err != nil {
		return "", fmt.Errorf("failed to store CSRF token: %w", err)
	}
	return token, nil
}

// Check validates the token a mutating request presented for the subject.
//
// A store failure on the read path is swallowed and treated as "no stored
// token", which rejects the request. Reads fail closed.
func (g *Guard) Check(ctx context.Context, subjectID, presented string) error {
	if presented == "" {
		return ErrTokenMissing
	}

	rec, err := g.store.Find(ctx, subjectID)
	if err != nil {
		g.logger.WithError(err).
			WithField("subject", subjectID).
			Warn("CSRF store read failed, treating as no stored token")
		rec = nil
	}

	if rec == nil || rec.Token != presented {
		return ErrTokenInvalid
	}
	return nil
}
