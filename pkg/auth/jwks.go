package auth

import (
	"context"
	"errors"
	"fmt"

	keyfunc "github.com/MicahParks/keyfunc/v3"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
)

// NewJWKS returns an Authenticator checking tokens against the key set at
// cfg.JWKSURL. Keys are refreshed in the background until ctx is done.
func NewJWKS(ctx context.Context, cfg Config) (Authenticator, error) {
	if cfg.JWKSURL == "" {
		return nil, errors.New("jwks url required")
	}
	return newKeySetVerifier(ctx, cfg, cfg.JWKSURL)
}

// NewOIDC discovers the issuer's key set through its OpenID configuration
// document and returns an Authenticator enforcing that issuer.
func NewOIDC(ctx context.Context, cfg Config) (Authenticator, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("issuer is required")
	}

	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery failed: %w", err)
	}

	var meta struct {
		Issuer  string `json:"issuer"`
		JwksURI string `json:"jwks_uri"`
	}
	if err := provider.Claims(&meta); err != nil {
		return nil, fmt.Errorf("invalid discovery metadata: %w", err)
	}
	if meta.JwksURI == "" {
		return nil, errors.New("discovery incomplete: missing jwks_uri")
	}

	cfg.Issuer = meta.Issuer
	return newKeySetVerifier(ctx, cfg, meta.JwksURI)
}

func newKeySetVerifier(ctx context.Context, cfg Config, jwksURL string) (*verifier, error) {
	if len(cfg.AllowedAlgs) == 0 {
		cfg.AllowedAlgs = []string{jwt.SigningMethodRS256.Alg()}
	}
	if cfg.Leeway == 0 {
		cfg.Leeway = DefaultLeeway
	}

	kf, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("jwks init failed: %w", err)
	}

	return &verifier{cfg: cfg, keyfunc: restrictAlgs(cfg.AllowedAlgs, kf.Keyfunc)}, nil
}
