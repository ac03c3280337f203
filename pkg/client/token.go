package client

import (
	"context"
	"os"
	"strings"
)

// TokenSource supplies the bearer token sent with every connection attempt.
// An empty token means the user is not signed in.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

func (f TokenSourceFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticToken always returns the same token.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// EnvToken reads the token from the environment variable name on every call.
func EnvToken(name string) TokenSource {
	return TokenSourceFunc(func(context.Context) (string, error) {
		return strings.TrimSpace(os.Getenv(name)), nil
	})
}

// FirstToken returns the first non-empty token of sources, in order. Errors
// stop the search.
func FirstToken(sources ...TokenSource) TokenSource {
	return TokenSourceFunc(func(ctx context.Context) (string, error) {
		for _, src := range sources {
			if src == nil {
				continue
			}
			tok, err := src.Token(ctx)
			if err != nil {
				return "", err
			}
			if tok != "" {
				return tok, nil
			}
		}
		return "", nil
	})
}
