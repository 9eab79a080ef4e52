package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/wardenhq/warden/pkg/config"
)

// GoogleVerifier validates Google ID tokens via OIDC discovery against the
// configured OAuth client id.
type GoogleVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewGoogleVerifier discovers the Google issuer and builds a verifier bound
// to the client id the frontend authenticates with.
func NewGoogleVerifier(ctx context.Context, cfg config.GoogleConfig) (*GoogleVerifier, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover issuer %s: %w", cfg.IssuerURL, err)
	}

	return &GoogleVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

// Verify checks signature, issuer, audience and expiry of a raw ID token and
// returns its subject and email.
func (g *GoogleVerifier) Verify(ctx context.Context, rawIDToken string) (*FederatedIdentity, error) {
	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("id token rejected: %w", err)
	}

	var claims struct {
		Email string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to decode id token claims: %w", err)
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("id token carries no email claim")
	}

	return &FederatedIdentity{Subject: idToken.Subject, Email: claims.Email}, nil
}
