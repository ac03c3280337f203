package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// minSecretLength is the shortest accepted HS256 secret, in bytes.
const minSecretLength = 32

// NewHS256 returns an Authenticator for tokens signed with cfg.Secret.
func NewHS256(cfg Config) (Authenticator, error) {
	if len(cfg.Secret) < minSecretLength {
		return nil, fmt.Errorf("hs256 secret must be at least %d bytes", minSecretLength)
	}
	if len(cfg.AllowedAlgs) == 0 {
		cfg.AllowedAlgs = []string{jwt.SigningMethodHS256.Alg()}
	}
	if cfg.Leeway == 0 {
		cfg.Leeway = DefaultLeeway
	}

	key := []byte(cfg.Secret)
	return &verifier{
		cfg: cfg,
		keyfunc: restrictAlgs(cfg.AllowedAlgs, func(*jwt.Token) (any, error) {
			return key, nil
		}),
	}, nil
}

// MintOptions describes a token signed by Mint.
type MintOptions struct {
	Subject  string
	Issuer   string
	Audience []string
	TTL      time.Duration
}

// Mint signs an HS256 token with secret. It backs local development, where
// no identity provider issues tokens.
func Mint(secret string, opts MintOptions) (string, error) {
	if len(secret) < minSecretLength {
		return "", fmt.Errorf("hs256 secret must be at least %d bytes", minSecretLength)
	}
	if opts.Subject == "" {
		return "", errors.New("subject is required")
	}
	if opts.TTL <= 0 {
		return "", errors.New("ttl must be positive")
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   opts.Subject,
		Issuer:    opts.Issuer,
		Audience:  opts.Audience,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(opts.TTL)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}
