// Package provider builds the llm.Generator for a configured upstream.
package provider

import (
	"net/http"
	"time"
)

// Config selects and configures an upstream provider.
type Config struct {
	// Type is one of SupportedProviders.
	Type string

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string

	// APIKey is sent with every upstream request when set.
	APIKey string

	// HTTPClient is used for upstream requests. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Script and Delay configure the script provider.
	Script []string
	Delay  time.Duration
}
