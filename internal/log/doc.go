// Package log provides slog loggers that never write API keys.
//
// pestadvisor handles two user secrets per submission: the language model
// key and the search API key. Both travel in HTTP headers or query strings,
// so they can surface in log attributes, error messages and URLs.
// SecureHandler masks them in all three places:
//   - attributes whose key names a credential (model_api_key, authorization, ...)
//   - values shaped like a key (sk-..., AIza..., long opaque tokens, bearer tokens)
//   - api_key=... query parameters inside URLs and error text
//
// Inline base64 image payloads are replaced with a placeholder as well.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("search request", "url", "https://serpapi.com/search.json?q=weevil&api_key=abc")
//	// url=https://serpapi.com/search.json?q=weevil&api_key=***REDACTED***
package log
