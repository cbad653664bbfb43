package config

import (
	"fmt"
	"strings"
)

// Credentials holds the two user-supplied secrets for one submission:
// the language model key (used by all three stages) and the search API key
// (used by the research stage's search tool).
//
// Secrets are held in memory only. There is no format validation; a value is
// either present or absent, and whitespace-only counts as absent.
type Credentials struct {
	// ModelAPIKey authenticates identification, research and synthesis calls.
	ModelAPIKey string `yaml:"model_api_key,omitempty"`

	// SearchAPIKey authenticates the web search performed during research.
	SearchAPIKey string `yaml:"search_api_key,omitempty"`
}

// HasModelAPIKey reports whether the model key is present.
func (c Credentials) HasModelAPIKey() bool {
	return strings.TrimSpace(c.ModelAPIKey) != ""
}

// HasSearchAPIKey reports whether the search key is present.
func (c Credentials) HasSearchAPIKey() bool {
	return strings.TrimSpace(c.SearchAPIKey) != ""
}

// Present reports whether both secrets are present.
func (c Credentials) Present() bool {
	return c.HasModelAPIKey() && c.HasSearchAPIKey()
}

// Missing returns the names of absent secrets, in check order.
func (c Credentials) Missing() []string {
	missing := make([]string, 0, 2)
	if !c.HasModelAPIKey() {
		missing = append(missing, "model_api_key")
	}
	if !c.HasSearchAPIKey() {
		missing = append(missing, "search_api_key")
	}
	return missing
}

// Validate returns nil when both secrets are present. Otherwise the error
// wraps ErrMissingCredential and the specific key error, model key first,
// matching the order in which the form reports them.
func (c Credentials) Validate() error {
	if !c.HasModelAPIKey() {
		return fmt.Errorf("%w: %w", ErrMissingCredential, ErrMissingModelAPIKey)
	}
	if !c.HasSearchAPIKey() {
		return fmt.Errorf("%w: %w", ErrMissingCredential, ErrMissingSearchAPIKey)
	}
	return nil
}

// Merge returns c with absent secrets filled from fallback.
func (c Credentials) Merge(fallback Credentials) Credentials {
	if !c.HasModelAPIKey() {
		c.ModelAPIKey = fallback.ModelAPIKey
	}
	if !c.HasSearchAPIKey() {
		c.SearchAPIKey = fallback.SearchAPIKey
	}
	return c
}

// String never prints secret values.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{model_api_key:%t search_api_key:%t}", c.HasModelAPIKey(), c.HasSearchAPIKey())
}
