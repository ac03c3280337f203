// Package credentials stores the bearer tokens used by "ideas watch" and the
// upstream provider API keys used by "ideas serve" in .ideas/credentials.toml.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/ideas/pkg/client"
	"github.com/papercomputeco/ideas/pkg/dotdir"
)

const fileName = "credentials.toml"

// fileMode keeps the secrets readable by the owner only.
const fileMode os.FileMode = 0o600

// providerEnvVars are the well-known variables each upstream SDK reads.
var providerEnvVars = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

// Manager reads and rewrites one credentials.toml. Updates within a process
// are serialized; the file itself is replaced atomically.
type Manager struct {
	path string
	mu   sync.Mutex
}

// NewManager resolves the .ideas/ directory (override first) and returns a
// Manager for the credentials file inside it.
func NewManager(override string) (*Manager, error) {
	dir, err := dotdir.NewManager().Target(override)
	if err != nil {
		return nil, err
	}
	return &Manager{path: filepath.Join(dir, fileName)}, nil
}

// Path returns the credentials file location.
func (m *Manager) Path() string {
	return m.path
}

// Load reads the credentials file. A missing file yields empty credentials.
func (m *Manager) Load() (*Credentials, error) {
	creds := &Credentials{}
	if _, err := toml.DecodeFile(m.path, creds); err != nil && !errors.Is(err, os.ErrNotExist) {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading credentials: %w", err)
		}
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}
	creds.init()
	return creds, nil
}

// update applies fn to the current credentials and writes the result.
func (m *Manager) update(fn func(*Credentials)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	creds, err := m.Load()
	if err != nil {
		return err
	}
	fn(creds)
	return m.write(creds)
}

// write encodes creds to a temporary file next to the target and renames it
// into place, so readers never see a partial file.
func (m *Manager) write(creds *Credentials) error {
	tmp, err := os.CreateTemp(filepath.Dir(m.path), fileName+".*")
	if err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("writing credentials: %w", err)
	}
	if err := toml.NewEncoder(tmp).Encode(creds); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	if err := os.Rename(tmp.Name(), m.path); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

// SetToken stores the bearer token for the server at target.
func (m *Manager) SetToken(target, token string) error {
	return m.update(func(c *Credentials) {
		c.Servers[serverKey(target)] = ServerCredential{Token: token}
	})
}

// RemoveToken forgets the token for the server at target.
func (m *Manager) RemoveToken(target string) error {
	return m.update(func(c *Credentials) {
		delete(c.Servers, serverKey(target))
	})
}

// Token returns the stored token for target, or "" when none is stored.
func (m *Manager) Token(target string) (string, error) {
	creds, err := m.Load()
	if err != nil {
		return "", err
	}
	return creds.Servers[serverKey(target)].Token, nil
}

// TokenSource returns the client.TokenSource used by "ideas watch" and
// "ideas history": envVar when set, otherwise the stored token for target.
// The file is read on every call so a token stored with "ideas auth" while
// watching is used on the next connection.
func (m *Manager) TokenSource(envVar, target string) client.TokenSource {
	return client.FirstToken(
		client.EnvToken(envVar),
		client.TokenSourceFunc(func(context.Context) (string, error) {
			return m.Token(target)
		}),
	)
}

// SetKey stores the API key for provider.
func (m *Manager) SetKey(provider, key string) error {
	return m.update(func(c *Credentials) {
		c.Providers[provider] = ProviderCredential{APIKey: key}
	})
}

// RemoveKey forgets the API key for provider.
func (m *Manager) RemoveKey(provider string) error {
	return m.update(func(c *Credentials) {
		delete(c.Providers, provider)
	})
}

// Key returns the stored API key for provider, or "" when none is stored.
func (m *Manager) Key(provider string) (string, error) {
	creds, err := m.Load()
	if err != nil {
		return "", err
	}
	return creds.Providers[provider].APIKey, nil
}

// ListProviders returns the providers with a stored key, sorted.
func (m *Manager) ListProviders() ([]string, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}
	return slices.Sorted(maps.Keys(creds.Providers)), nil
}

// ResolveKey returns the API key for provider: override when set, then the
// provider's environment variable, then the stored key.
func (m *Manager) ResolveKey(provider, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if env := EnvVarForProvider(provider); env != "" {
		if key := strings.TrimSpace(os.Getenv(env)); key != "" {
			return key, nil
		}
	}
	return m.Key(provider)
}

// EnvVarForProvider returns the provider's environment variable, or "" for
// providers that take no key.
func EnvVarForProvider(provider string) string {
	return providerEnvVars[provider]
}

// SupportedProviders returns the providers that take an API key.
func SupportedProviders() []string {
	return slices.Sorted(maps.Keys(providerEnvVars))
}

func IsSupportedProvider(provider string) bool {
	_, ok := providerEnvVars[provider]
	return ok
}

// serverKey normalizes a server URL so that "http://host:8080/" and
// "http://host:8080" share a token.
func serverKey(target string) string {
	return strings.TrimRight(strings.TrimSpace(target), "/")
}
