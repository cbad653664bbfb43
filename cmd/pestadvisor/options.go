package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/pestadvisor/internal/config"
	applog "github.com/nao1215/pestadvisor/internal/log"
)

// Environment variables holding the API keys.
const (
	envModelAPIKey  = "PESTADVISOR_MODEL_API_KEY"
	envSearchAPIKey = "PESTADVISOR_SEARCH_API_KEY"
)

// addPipelineFlags registers the flags shared by every command that runs
// the report pipeline.
func addPipelineFlags(cmd *cobra.Command) {
	// Credentials
	cmd.Flags().String("model-api-key", "",
		"Language model API key (env "+envModelAPIKey+")")
	cmd.Flags().String("search-api-key", "",
		"SerpAPI key (env "+envSearchAPIKey+")")

	// Model backend
	cmd.Flags().String("provider", config.DefaultProvider,
		`Model provider: "openai" or "gemini"`)
	cmd.Flags().String("base-url", "",
		"OpenAI-compatible API root (default "+config.DefaultOpenAIBaseURL+")")
	cmd.Flags().DurationP("stage-timeout", "t", config.DefaultStageTimeout,
		"Timeout for each of the three steps")
	cmd.Flags().String("proxy", "",
		"Route API traffic through a SOCKS5 proxy (host:port)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .pestadvisor in current or home directory)")
}

// buildConfig creates a Config from defaults, the config file, the
// environment and cobra flags. Later sources win; for credentials the order
// is flags, then environment, then file.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use defaults if no file found.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		file.Apply(cfg)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if cmd.Flags().Changed("provider") {
		if cfg.Provider, err = cmd.Flags().GetString("provider"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("base-url") {
		if cfg.BaseURL, err = cmd.Flags().GetString("base-url"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("stage-timeout") {
		if cfg.StageTimeout, err = cmd.Flags().GetDuration("stage-timeout"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("proxy") {
		if cfg.ProxyAddress, err = cmd.Flags().GetString("proxy"); err != nil {
			return nil, err
		}
	}

	flagCreds, err := credentialsFromFlags(cmd)
	if err != nil {
		return nil, err
	}
	envCreds := config.Credentials{
		ModelAPIKey:  os.Getenv(envModelAPIKey),
		SearchAPIKey: os.Getenv(envSearchAPIKey),
	}
	cfg.Credentials = flagCreds.Merge(envCreds).Merge(cfg.Credentials)

	cfg.Verbose = getVerboseFlag(cmd)
	cfg.DBDir = config.XDGDataDir()
	cfg.SaveToDB = true

	return cfg, nil
}

func credentialsFromFlags(cmd *cobra.Command) (config.Credentials, error) {
	modelKey, err := cmd.Flags().GetString("model-api-key")
	if err != nil {
		return config.Credentials{}, err
	}
	searchKey, err := cmd.Flags().GetString("search-api-key")
	if err != nil {
		return config.Credentials{}, err
	}
	return config.Credentials{ModelAPIKey: modelKey, SearchAPIKey: searchKey}, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates a structured logger that masks API keys.
// Logs always go to stderr so stdout stays free for reports and MCP traffic.
func setupLogger(verbose bool) *slog.Logger {
	return applog.NewSecureLogger(os.Stderr, verbose)
}
