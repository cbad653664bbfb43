package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Supported model providers.
const (
	// ProviderOpenAI talks to any OpenAI-compatible chat completions endpoint.
	ProviderOpenAI = "openai"

	// ProviderGemini talks to the Gemini API through google.golang.org/genai.
	ProviderGemini = "gemini"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "pestadvisor"

	// DefaultProvider is the model provider used when none is configured.
	DefaultProvider = ProviderOpenAI

	// DefaultOpenAIBaseURL is the OpenAI REST API root.
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"

	// DefaultIdentifierModel is the multimodal model for the identification stage.
	DefaultIdentifierModel = "gpt-4o"

	// DefaultResearcherModel is the tool-calling model for the research stage.
	DefaultResearcherModel = "gpt-4o"

	// DefaultSynthesizerModel is the model that writes the final report.
	DefaultSynthesizerModel = "o3-mini"

	// DefaultGeminiModel is used for every stage when the provider is Gemini
	// and no per-stage model is configured.
	DefaultGeminiModel = "gemini-2.5-flash"

	// DefaultStageTimeout bounds a single remote stage, tool round trips included.
	// Synthesis with a reasoning model regularly takes over a minute.
	DefaultStageTimeout = 3 * time.Minute

	// DefaultMaxSearchResults is the number of organic results requested from
	// the search engine. The research stage returns at most this many links.
	DefaultMaxSearchResults = 10

	// DefaultMaxToolRounds is the number of model round trips allowed in the
	// research stage: one to issue the search, one to answer, and slack for
	// a model that retries the tool after being told the search is spent.
	DefaultMaxToolRounds = 4

	// DefaultBatchSize processes submissions one at a time.
	DefaultBatchSize = 1

	// DefaultMaxImageSize limits uploads to 20MB, the OpenAI per-image limit.
	DefaultMaxImageSize = 20 * 1024 * 1024

	// DefaultListenAddress is where the web UI listens. Loopback only.
	DefaultListenAddress = "127.0.0.1:8501"

	// DefaultUserAgent identifies pestadvisor in outbound HTTP requests.
	DefaultUserAgent = "pestadvisor/1.0 (+https://github.com/nao1215/pestadvisor)"
)

// Models names the model used by each stage.
// Empty fields are resolved by Config.EffectiveModels.
type Models struct {
	Identifier  string `yaml:"identifier,omitempty"`
	Researcher  string `yaml:"researcher,omitempty"`
	Synthesizer string `yaml:"synthesizer,omitempty"`
}

// Config holds all configuration options for pestadvisor.
// It is populated from defaults, the YAML config file and CLI flags, in that
// order, and passed explicitly to the pipeline entry point.
type Config struct {
	// Provider selects the model backend: ProviderOpenAI or ProviderGemini.
	Provider string

	// BaseURL overrides the OpenAI-compatible API root.
	// Ignored by the Gemini provider.
	BaseURL string

	// Models holds per-stage model overrides.
	Models Models

	// StageTimeout bounds each remote stage.
	StageTimeout time.Duration

	// MaxSearchResults is the number of results the search tool requests.
	MaxSearchResults int

	// MaxToolRounds bounds the research stage tool loop.
	MaxToolRounds int

	// MaxImageSize is the largest accepted upload in bytes.
	MaxImageSize int64

	// ProxyAddress routes outbound API traffic through a SOCKS5 proxy in
	// "host:port" form. Empty means a direct connection.
	ProxyAddress string

	// UserAgent is sent with search requests.
	UserAgent string

	// TempDir is where the uploaded image is staged during identification.
	// Empty means os.TempDir().
	TempDir string

	// Verbose enables debug logging.
	Verbose bool

	// BatchSize is the number of submissions processed concurrently by the
	// report command when several images are given.
	BatchSize int

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .pestadvisor in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// Credentials holds the two secrets the pipeline requires.
	Credentials Credentials

	// JSONReport writes the run record as JSON instead of the report text.
	JSONReport bool

	// MetadataReport appends a run metadata section to the markdown report.
	MetadataReport bool

	// RenderReport renders the markdown for the terminal.
	RenderReport bool

	// ReportFile is the output path. A directory path receives the export file name.
	ReportFile string

	// DBDir is the directory holding the run log database.
	DBDir string

	// SaveToDB records run metadata in the run log.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Provider:         DefaultProvider,
		StageTimeout:     DefaultStageTimeout,
		MaxSearchResults: DefaultMaxSearchResults,
		MaxToolRounds:    DefaultMaxToolRounds,
		MaxImageSize:     DefaultMaxImageSize,
		UserAgent:        DefaultUserAgent,
		BatchSize:        DefaultBatchSize,
	}
}

// EffectiveModels returns the per-stage models with provider defaults filled in.
func (c *Config) EffectiveModels() Models {
	m := c.Models
	if c.Provider == ProviderGemini {
		if m.Identifier == "" {
			m.Identifier = DefaultGeminiModel
		}
		if m.Researcher == "" {
			m.Researcher = DefaultGeminiModel
		}
		if m.Synthesizer == "" {
			m.Synthesizer = DefaultGeminiModel
		}
		return m
	}
	if m.Identifier == "" {
		m.Identifier = DefaultIdentifierModel
	}
	if m.Researcher == "" {
		m.Researcher = DefaultResearcherModel
	}
	if m.Synthesizer == "" {
		m.Synthesizer = DefaultSynthesizerModel
	}
	return m
}

// EffectiveBaseURL returns the OpenAI-compatible API root.
func (c *Config) EffectiveBaseURL() string {
	if c.BaseURL == "" {
		return DefaultOpenAIBaseURL
	}
	return c.BaseURL
}

// XDGDataDir returns the XDG data directory for pestadvisor.
// On Linux: ~/.local/share/pestadvisor
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for pestadvisor.
// On Linux: ~/.config/pestadvisor
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first problem found.
// Credentials are not checked here; they are a per-submission precondition
// verified by the pipeline before any remote call.
func (c *Config) Validate() error {
	if c.Provider != ProviderOpenAI && c.Provider != ProviderGemini {
		return ErrUnknownProvider
	}

	if c.StageTimeout <= 0 {
		return ErrInvalidStageTimeout
	}

	if c.MaxSearchResults < 1 || c.MaxSearchResults > 100 {
		return ErrInvalidMaxSearchResults
	}

	if c.MaxToolRounds < 2 {
		return ErrInvalidMaxToolRounds
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.MaxImageSize <= 0 {
		return ErrInvalidMaxImageSize
	}

	formats := 0
	for _, on := range []bool{c.JSONReport, c.MetadataReport, c.RenderReport} {
		if on {
			formats++
		}
	}
	if formats > 1 {
		return ErrConflictingReportFormats
	}

	return nil
}
