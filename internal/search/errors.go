package search

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey is returned when the client has no SerpAPI key.
	ErrMissingAPIKey = errors.New("search API key is required")

	// ErrEmptyQuery is returned for a blank query.
	ErrEmptyQuery = errors.New("search query is empty")
)

// APIError is an error answer from SerpAPI.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("search API request failed with status %d: %s", e.StatusCode, e.Message)
}
