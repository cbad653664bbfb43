package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyResponse is returned when the provider answers with no choices or candidates.
	ErrEmptyResponse = errors.New("model returned no completion")

	// ErrToolLoopExceeded is returned when the model keeps calling tools past the round limit.
	ErrToolLoopExceeded = errors.New("model exceeded the tool call round limit")

	// ErrUnknownProvider is returned by New for an unsupported provider name.
	ErrUnknownProvider = errors.New("unknown model provider")

	// ErrMissingAPIKey is returned by New when no API key is given.
	ErrMissingAPIKey = errors.New("model API key is required")
)

// APIError is a non-2xx answer from a model provider.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API request failed with status %d: %s", e.Provider, e.StatusCode, e.Message)
}
