package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and Credentials.Validate()
// and can be matched with errors.Is().
var (
	// ErrMissingCredential is the umbrella error for an absent secret.
	// ErrMissingModelAPIKey and ErrMissingSearchAPIKey are reported wrapped in it.
	ErrMissingCredential = errors.New("missing configuration")

	// ErrMissingModelAPIKey is returned when the language model API key is absent.
	ErrMissingModelAPIKey = errors.New("model API key is not set: provide it with --model-api-key or in the config file")

	// ErrMissingSearchAPIKey is returned when the search API key is absent.
	ErrMissingSearchAPIKey = errors.New("search API key is not set: provide it with --search-api-key or in the config file")

	// ErrUnknownProvider is returned when the model provider is not supported.
	ErrUnknownProvider = errors.New("unknown model provider: must be \"openai\" or \"gemini\"")

	// ErrInvalidStageTimeout is returned when the per-stage timeout is not positive.
	ErrInvalidStageTimeout = errors.New("invalid stage timeout: must be positive")

	// ErrInvalidMaxSearchResults is returned when the search result limit is out of range.
	ErrInvalidMaxSearchResults = errors.New("invalid max search results: must be between 1 and 100")

	// ErrInvalidMaxToolRounds is returned when the tool loop cannot complete a search round trip.
	ErrInvalidMaxToolRounds = errors.New("invalid max tool rounds: must be at least 2")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidMaxImageSize is returned when the upload size limit is not positive.
	ErrInvalidMaxImageSize = errors.New("invalid max image size: must be positive")

	// ErrConflictingReportFormats is returned when more than one of
	// --json, --metadata and --render are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json, --metadata and --render cannot be combined")
)
