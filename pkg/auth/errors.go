package auth

import "errors"

var (
	// ErrMissingAuthHeader indicates the Authorization header is absent or
	// is not of the form "Bearer <token>". Reported before verification.
	ErrMissingAuthHeader = errors.New("missing or malformed authorization header")

	// ErrInvalidToken indicates the token signature is invalid or the
	// token is expired.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrInvalidTokenPayload indicates a token that verified but carries
	// no subject identifier.
	ErrInvalidTokenPayload = errors.New("invalid token payload")
)
