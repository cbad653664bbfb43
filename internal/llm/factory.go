package llm

import (
	"context"
	"net/http"
	"strings"
)

// Provider names accepted by New.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Options configures New.
type Options struct {
	Provider string
	APIKey   string

	// BaseURL is the OpenAI-compatible API root. Ignored for Gemini.
	BaseURL string

	HTTPClient *http.Client
}

// New returns a Client for the configured provider.
func New(ctx context.Context, opts Options) (Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	switch opts.Provider {
	case ProviderOpenAI, "":
		return NewOpenAIClient(opts.APIKey, opts.BaseURL, opts.HTTPClient), nil
	case ProviderGemini:
		return NewGeminiClient(ctx, opts.APIKey, opts.HTTPClient)
	default:
		return nil, ErrUnknownProvider
	}
}
