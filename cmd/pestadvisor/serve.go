package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/pestadvisor/internal/config"
	"github.com/nao1215/pestadvisor/internal/database"
	"github.com/nao1215/pestadvisor/internal/pipeline"
	"github.com/nao1215/pestadvisor/internal/web"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web UI",
		Long: `Serve starts a local web page for generating reports.

The page has a form for the photo, the location, optional context and the
two API keys. Keys left blank in the form fall back to the keys given with
flags, environment variables or the config file. The last report can be
downloaded as insect_pest_control_report.md.

Submissions are processed one at a time.

Examples:
  # Serve on http://127.0.0.1:8501
  pestadvisor serve

  # Serve on another address
  pestadvisor serve -a 127.0.0.1:9000`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	addPipelineFlags(cmd)
	cmd.Flags().StringP("listen", "a", config.DefaultListenAddress,
		"Address to listen on")
	cmd.Flags().Bool("no-history", false,
		"Do not record runs in the run log")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	addr, err := cmd.Flags().GetString("listen")
	if err != nil {
		return err
	}
	noHistory, err := cmd.Flags().GetBool("no-history")
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	advisor, err := pipeline.NewAdvisor(cfg, pipeline.WithAdvisorLogger(logger))
	if err != nil {
		return err
	}

	opts := web.Options{
		Generator:   advisor,
		Config:      cfg,
		Credentials: cfg.Credentials,
		Logger:      logger,
		Version:     getVersion(),
		Addr:        addr,
	}
	if !noHistory {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open run log: %w", err)
		}
		defer db.Close()
		opts.Recorder = db
	}

	srv, err := web.NewServer(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving pestadvisor on http://%s (press Ctrl+C to stop)\n", srv.Addr)
	return web.Run(ctx, srv, logger)
}
