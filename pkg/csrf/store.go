// Package csrf implements the double-submit anti-forgery guard used on
// mutating requests.
//
// One Record exists per subject; issuing a new token overwrites the old
// one (upsert semantics). The guard's failure policy is asymmetric on
// purpose: store failures on the read path are swallowed and treated as
// "no stored token" and the request is rejected, while store failures on
// the write path propagate to the caller as a 500-class response. Do not
// unify the two.
package csrf

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTokenMissing indicates the request presented no CSRF token
	ErrTokenMissing = errors.New("CSRF token missing")

	// ErrTokenInvalid indicates no stored record exists for the subject,
	// or the presented token does not exactly match the stored one
	ErrTokenInvalid = errors.New("invalid CSRF token")
)

// Record maps a subject to its current anti-forgery token
type Record struct {
	SubjectID string    `json:"subject_id"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists CSRF records, one per subject
type Store interface {
	// Find returns the record for the subject, or nil if none exists
	Find(ctx context.Context, subjectID string) (*Record, error)

	// Upsert creates or overwrites the subject's record. Never duplicates:
	// an existing record keeps its CreatedAt and gets a new token and
	// UpdatedAt.
	Upsert(ctx context.Context, subjectID, token string, now time.Time) (*Record, error)
}
