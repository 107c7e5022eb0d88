package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// OIDCConfig configures verification against an external identity provider
type OIDCConfig struct {
	IssuerURL string
	ClientID  string
}

// OIDCVerifier validates ID tokens minted by an OIDC provider. It
// satisfies the same Verifier contract as the local JWT verifier, so the
// middleware chain is unchanged when a deployment delegates credential
// issuance.
type OIDCVerifier struct {
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier

	// Endpoint is exposed for login flows that redirect to the provider.
	Endpoint oauth2.Endpoint
}

// NewOIDCVerifier discovers the provider configuration and builds a verifier
func NewOIDCVerifier(ctx context.Context, cfg OIDCConfig) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc provider discovery failed: %w", err)
	}

	return &OIDCVerifier{
		provider: provider,
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		Endpoint: provider.Endpoint(),
	}, nil
}

// Verify validates the raw ID token and extracts the subject
func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if idToken.Subject == "" {
		return nil, ErrInvalidTokenPayload
	}

	return &Identity{SubjectID: idToken.Subject}, nil
}
