package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/pestadvisor/internal/database"
	"github.com/nao1215/pestadvisor/internal/mcp"
	"github.com/nao1215/pestadvisor/internal/pipeline"
)

// NewMCPCmd creates the mcp command.
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run as an MCP tool server over stdio",
		Long: `MCP serves the generate_pest_report tool over the Model Context Protocol
on stdin and stdout, so assistants can request reports for local photos.

Tool arguments:
  image_path  path to a JPEG or PNG photo (required)
  location    where the insect was found
  context     optional notes

The API keys come from flags, environment variables or the config file;
the tool never accepts keys as arguments.

Example client configuration:
  {
    "mcpServers": {
      "pestadvisor": {
        "command": "pestadvisor",
        "args": ["mcp"],
        "env": {
          "PESTADVISOR_MODEL_API_KEY": "...",
          "PESTADVISOR_SEARCH_API_KEY": "..."
        }
      }
    }
  }`,
		Args: cobra.NoArgs,
		RunE: runMCPCmd,
	}

	addPipelineFlags(cmd)
	cmd.Flags().Bool("no-history", false,
		"Do not record runs in the run log")

	return cmd
}

// runMCPCmd executes the mcp command.
func runMCPCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	noHistory, err := cmd.Flags().GetBool("no-history")
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	if missing := cfg.Credentials.Missing(); len(missing) > 0 {
		logger.Warn("credentials are missing; every tool call will fail until they are set", "missing", missing)
	}

	advisor, err := pipeline.NewAdvisor(cfg, pipeline.WithAdvisorLogger(logger))
	if err != nil {
		return err
	}

	opts := mcp.Options{
		Generator:   advisor,
		Config:      cfg,
		Credentials: cfg.Credentials,
		Logger:      logger,
		Version:     getVersion(),
	}
	if !noHistory {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open run log: %w", err)
		}
		defer db.Close()
		opts.Recorder = db
	}

	return mcp.Run(opts)
}
