package credentials

// Credentials is the content of credentials.toml.
type Credentials struct {
	Version   int                           `toml:"version"`
	Servers   map[string]ServerCredential   `toml:"servers"`
	Providers map[string]ProviderCredential `toml:"providers"`
}

// ServerCredential holds the bearer token presented to one ideas server.
type ServerCredential struct {
	Token string `toml:"token"`
}

// ProviderCredential holds the API key for a single upstream provider.
type ProviderCredential struct {
	APIKey string `toml:"api_key"`
}

func (c *Credentials) init() {
	if c.Servers == nil {
		c.Servers = make(map[string]ServerCredential)
	}
	if c.Providers == nil {
		c.Providers = make(map[string]ProviderCredential)
	}
}
