package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".pestadvisor"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the .pestadvisor configuration file.
// Zero values mean "not set" and leave the current Config value untouched.
type File struct {
	Provider         string        `yaml:"provider,omitempty"`
	BaseURL          string        `yaml:"base_url,omitempty"`
	Models           Models        `yaml:"models,omitempty"`
	StageTimeout     time.Duration `yaml:"stage_timeout,omitempty"`
	MaxSearchResults int           `yaml:"max_search_results,omitempty"`
	MaxToolRounds    int           `yaml:"max_tool_rounds,omitempty"`
	MaxImageSize     int64         `yaml:"max_image_size,omitempty"`
	Proxy            string        `yaml:"proxy,omitempty"`
	UserAgent        string        `yaml:"user_agent,omitempty"`
	TempDir          string        `yaml:"temp_dir,omitempty"`
	Credentials      Credentials   `yaml:"credentials,omitempty"`
}

// LoadConfigFile loads settings from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	return &cf, nil
}

// Apply overlays the non-zero file settings onto cfg.
func (f *File) Apply(cfg *Config) {
	if f.Provider != "" {
		cfg.Provider = f.Provider
	}
	if f.BaseURL != "" {
		cfg.BaseURL = f.BaseURL
	}
	if f.Models.Identifier != "" {
		cfg.Models.Identifier = f.Models.Identifier
	}
	if f.Models.Researcher != "" {
		cfg.Models.Researcher = f.Models.Researcher
	}
	if f.Models.Synthesizer != "" {
		cfg.Models.Synthesizer = f.Models.Synthesizer
	}
	if f.StageTimeout > 0 {
		cfg.StageTimeout = f.StageTimeout
	}
	if f.MaxSearchResults > 0 {
		cfg.MaxSearchResults = f.MaxSearchResults
	}
	if f.MaxToolRounds > 0 {
		cfg.MaxToolRounds = f.MaxToolRounds
	}
	if f.MaxImageSize > 0 {
		cfg.MaxImageSize = f.MaxImageSize
	}
	if f.Proxy != "" {
		cfg.ProxyAddress = f.Proxy
	}
	if f.UserAgent != "" {
		cfg.UserAgent = f.UserAgent
	}
	if f.TempDir != "" {
		cfg.TempDir = f.TempDir
	}
	cfg.Credentials = cfg.Credentials.Merge(f.Credentials)
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .pestadvisor in the current directory
// 3. Look for .pestadvisor in the user's home directory
// 4. Look for config.yaml in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	xdgConfig := filepath.Join(XDGConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig
	}

	return ""
}
