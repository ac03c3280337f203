// Package auth validates the bearer tokens presented to the ideas API.
//
// Three modes are supported: "hs256" checks tokens signed with a shared
// secret, "jwks" checks tokens against a JSON Web Key Set URL and "oidc"
// discovers the key set from an OpenID Connect issuer.
package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Supported modes.
const (
	ModeHS256 = "hs256"
	ModeJWKS  = "jwks"
	ModeOIDC  = "oidc"
)

// DefaultLeeway is the clock skew tolerated on exp, nbf and iat.
const DefaultLeeway = 60 * time.Second

// ErrUnauthorized indicates that the token failed validation and the request
// must be treated as unauthenticated.
var ErrUnauthorized = errors.New("auth: unauthorized")

// Config selects and configures token validation.
type Config struct {
	Mode string

	// Secret signs and verifies tokens in hs256 mode.
	Secret string

	// Issuer is required in oidc mode and enforced when set in other modes.
	Issuer string

	// Audiences, when set, must intersect the token's aud claim.
	Audiences []string

	// JWKSURL is the key set used in jwks mode.
	JWKSURL string

	// AllowedAlgs defaults to HS256 in hs256 mode and RS256 otherwise.
	AllowedAlgs []string

	Leeway time.Duration
}

// Identity is the authenticated caller.
type Identity struct {
	Subject string
	Claims  jwt.MapClaims
}

// Authenticator validates bearer tokens.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Identity, error)
}

// New builds the Authenticator for cfg.Mode. The jwks and oidc modes fetch
// remote documents and use ctx for the initial requests and the key set
// refresh goroutine.
func New(ctx context.Context, cfg Config) (Authenticator, error) {
	if cfg.Leeway == 0 {
		cfg.Leeway = DefaultLeeway
	}

	switch cfg.Mode {
	case ModeHS256, "":
		return NewHS256(cfg)
	case ModeJWKS:
		return NewJWKS(ctx, cfg)
	case ModeOIDC:
		return NewOIDC(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown auth mode: %q (supported: %v)", cfg.Mode, []string{ModeHS256, ModeJWKS, ModeOIDC})
	}
}

// verifier holds the validation shared by every mode.
type verifier struct {
	cfg     Config
	keyfunc jwt.Keyfunc
}

func (v *verifier) Authenticate(_ context.Context, tok string) (*Identity, error) {
	if tok == "" {
		return nil, fmt.Errorf("%w: empty token", ErrUnauthorized)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(v.cfg.AllowedAlgs),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.cfg.Leeway),
	}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.Issuer))
	}

	parsed, err := jwt.NewParser(opts...).Parse(tok, v.keyfunc)
	if err != nil {
		return nil, fmt.Errorf("%w: token parse/verify failed: %v", ErrUnauthorized, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}

	if len(v.cfg.Audiences) > 0 && !audIntersects(claims["aud"], v.cfg.Audiences) {
		return nil, fmt.Errorf("%w: audience mismatch", ErrUnauthorized)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrUnauthorized)
	}

	return &Identity{Subject: sub, Claims: claims}, nil
}

// restrictAlgs wraps kf so that only the configured algorithms reach it.
func restrictAlgs(allowed []string, kf jwt.Keyfunc) jwt.Keyfunc {
	return func(t *jwt.Token) (any, error) {
		if alg := t.Method.Alg(); !slices.Contains(allowed, alg) {
			return nil, fmt.Errorf("disallowed alg: %s", alg)
		}
		return kf(t)
	}
}

func audIntersects(aud any, wants []string) bool {
	switch v := aud.(type) {
	case string:
		return slices.Contains(wants, v)
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok && slices.Contains(wants, s) {
				return true
			}
		}
	case []string:
		for _, s := range v {
			if slices.Contains(wants, s) {
				return true
			}
		}
	}
	return false
}
