package auth

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const bearerPrefix = "Bearer "

// Identity is the result of a successful credential verification
type Identity struct {
	SubjectID string
}

// Verifier validates a raw bearer credential and extracts the caller
// identity. Implementations must return ErrInvalidToken for signature or
// expiry failures and ErrInvalidTokenPayload for an empty subject.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*Identity, error)
}

// ExtractBearer pulls the token out of an Authorization header value.
// Returns ErrMissingAuthHeader when the header is empty or lacks the
// "Bearer " prefix; this check runs before any verification.
func ExtractBearer(header string) (string, error) {
	if header == "" || !strings.HasPrefix(header, bearerPrefix) {
		return "", ErrMissingAuthHeader
	}
	token := header[len(bearerPrefix):]
	if token == "" {
		return "", ErrMissingAuthHeader
	}
	return token, nil
}

// Claims are the JWT claims carried by locally issued credentials
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// JWTVerifier verifies HS256-signed JWTs against a shared secret
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier creates a verifier for locally issued tokens
func NewJWTVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{secret: secret}
}

// Verify validates the token signature and expiry and extracts the subject
func (v *JWTVerifier) Verify(_ context.Context, rawToken string) (*Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(rawToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	subject := claims.UserID
	if subject == "" {
		subject = claims.Subject
	}
	if subject == "" {
		return nil, ErrInvalidTokenPayload
	}

	return &Identity{SubjectID: subject}, nil
}

// Issue signs a new credential for the subject, valid for ttl
func (v *JWTVerifier) Issue(subjectID string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: subjectID,
	})
	return token.SignedString(v.secret)
}
