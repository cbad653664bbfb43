package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/pestadvisor/internal/config"
	"github.com/nao1215/pestadvisor/internal/database"
	"github.com/nao1215/pestadvisor/internal/imageinfo"
	"github.com/nao1215/pestadvisor/internal/model"
	"github.com/nao1215/pestadvisor/internal/pipeline"
	"github.com/nao1215/pestadvisor/internal/report"
)

// jsonExportFileName is used instead of report.ExportFileName for --json.
var jsonExportFileName = strings.TrimSuffix(report.ExportFileName, filepath.Ext(report.ExportFileName)) + ".json"

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [image...]",
		Short: "Generate a pest control report from an insect photo",
		Long: `Report identifies the insect in each JPEG or PNG photo and writes a
pest control report for the given location.

The report contains:
- The identified insect with confidence and risk
- Organic remedies and chemical options for your region
- Safety precautions and methods to avoid
- Links to extension services and other resources

Examples:
  # Generate a report for one photo
  pestadvisor report -l "Pune, India" beetle.jpg

  # Add context about where the insect was found
  pestadvisor report -l "Ohio, USA" -x "found in the flour bin" beetle.jpg

  # Save the report as insect_pest_control_report.md in a directory
  pestadvisor report -l "Pune, India" -o reports/ beetle.jpg

  # Render the report for the terminal
  pestadvisor report --render -l "Pune, India" beetle.jpg

  # Several photos, two at a time, one file per photo
  pestadvisor report -b 2 -o reports/ a.jpg b.png c.jpg

  # Output the full run record as JSON
  pestadvisor report --json -l "Pune, India" beetle.jpg`,
		Args: cobra.ArbitraryArgs,
		RunE: runReportCmd,
	}

	addPipelineFlags(cmd)

	// Submission flags
	cmd.Flags().StringP("location", "l", "",
		"Where the insect was found, e.g. \"Pune, India\"")
	cmd.Flags().StringP("context", "x", "",
		"Additional context, e.g. the affected crop or room")

	// Batch flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of photos processed concurrently")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output the run record as JSON")
	cmd.Flags().BoolP("metadata", "m", false,
		"Append run details (stages, search query, image metadata) to the markdown report")
	cmd.Flags().BoolP("render", "r", false,
		"Render the markdown report for the terminal")
	cmd.Flags().StringP("output", "o", "",
		"Write the report to a file or directory (creates directories if needed)")
	cmd.Flags().BoolP("quiet", "q", false,
		"Do not print progress to stderr")
	cmd.Flags().Bool("no-history", false,
		"Do not record the run in the run log")

	return cmd
}

// reportOptions holds the per-invocation inputs of the report command.
type reportOptions struct {
	images   []string
	location string
	context  string
}

// runReportCmd executes the report command.
func runReportCmd(cmd *cobra.Command, args []string) error {
	cfg, opts, err := buildReportConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return err
	}
	advisorOpts := []pipeline.AdvisorOption{pipeline.WithAdvisorLogger(logger)}
	if !quiet {
		advisorOpts = append(advisorOpts, pipeline.WithRunObserver(newProgress(cmd.ErrOrStderr()).observe))
	}
	advisor, err := pipeline.NewAdvisor(cfg, advisorOpts...)
	if err != nil {
		return err
	}

	var recorder recorder
	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open run log: %w", err)
		}
		defer db.Close()
		recorder = db
	}

	return runReport(ctx, cfg, opts, reportDeps{
		generator: advisor,
		recorder:  recorder,
		out:       cmd.OutOrStdout(),
		errOut:    cmd.ErrOrStderr(),
		logger:    logger,
	})
}

// buildReportConfig reads the shared pipeline flags and the report flags.
func buildReportConfig(cmd *cobra.Command, args []string) (*config.Config, reportOptions, error) {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return nil, reportOptions{}, err
	}

	opts := reportOptions{images: args}
	if opts.location, err = cmd.Flags().GetString("location"); err != nil {
		return nil, reportOptions{}, err
	}
	if opts.context, err = cmd.Flags().GetString("context"); err != nil {
		return nil, reportOptions{}, err
	}
	if cfg.BatchSize, err = cmd.Flags().GetInt("batch"); err != nil {
		return nil, reportOptions{}, err
	}
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return nil, reportOptions{}, err
	}
	if cfg.MetadataReport, err = cmd.Flags().GetBool("metadata"); err != nil {
		return nil, reportOptions{}, err
	}
	if cfg.RenderReport, err = cmd.Flags().GetBool("render"); err != nil {
		return nil, reportOptions{}, err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return nil, reportOptions{}, err
	}
	noHistory, err := cmd.Flags().GetBool("no-history")
	if err != nil {
		return nil, reportOptions{}, err
	}
	cfg.SaveToDB = !noHistory

	return cfg, opts, nil
}

// recorder stores run metadata.
type recorder interface {
	Record(ctx context.Context, run *model.Run) error
}

// reportDeps are the collaborators of runReport.
type reportDeps struct {
	generator pipeline.Generator
	recorder  recorder
	out       io.Writer
	errOut    io.Writer
	logger    *slog.Logger
}

// runReport checks the preconditions, runs every submission and writes the
// reports. Credentials are checked before the images, and every image is
// loaded before the first remote call.
func runReport(ctx context.Context, cfg *config.Config, opts reportOptions, deps reportDeps) error {
	if err := cfg.Credentials.Validate(); err != nil {
		return err
	}
	if len(opts.images) == 0 {
		return fmt.Errorf("%w (specify one or more image files as arguments)", model.ErrMissingImage)
	}

	subs := make([]pipeline.Submission, 0, len(opts.images))
	for _, path := range opts.images {
		img, err := imageinfo.ReadFile(path, cfg.MaxImageSize)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		bundle, err := model.NewRequestBundle(img, opts.location, opts.context)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		subs = append(subs, pipeline.Submission{Source: path, Bundle: bundle})
	}

	deps.logger.Info("starting report",
		"images", len(subs),
		"location", opts.location,
		"provider", cfg.Provider,
		"batchSize", cfg.BatchSize,
	)

	if len(subs) == 1 {
		return runSingleReport(ctx, cfg, subs[0], deps)
	}
	return runBatchReport(ctx, cfg, subs, deps)
}

// runSingleReport generates and writes one report.
func runSingleReport(ctx context.Context, cfg *config.Config, sub pipeline.Submission, deps reportDeps) error {
	run, err := deps.generator.Generate(ctx, cfg.Credentials, sub.Bundle)
	saveRun(deps, run)
	if err != nil {
		if cfg.JSONReport {
			if werr := outputReport(cfg, run, sub.Source, false, deps); werr != nil {
				deps.logger.Error("report failed", "source", sub.Source, "error", werr)
			}
		}
		return fmt.Errorf("report generation failed: %w", err)
	}
	return outputReport(cfg, run, sub.Source, false, deps)
}

// runBatchReport generates reports for several images concurrently using
// BatchProcessor.
func runBatchReport(ctx context.Context, cfg *config.Config, subs []pipeline.Submission, deps reportDeps) error {
	fmt.Fprintf(deps.errOut, "Generating %d reports (concurrency: %d)...\n\n", len(subs), cfg.BatchSize)
	startTime := time.Now()

	bp := pipeline.NewBatchProcessor(deps.generator,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(deps.logger),
	)

	var (
		mu     sync.Mutex
		failed int
	)
	err := bp.ProcessBatchWithCallback(ctx, cfg.Credentials, subs, func(run *model.Run, index int) {
		saveRun(deps, run)

		mu.Lock()
		defer mu.Unlock()

		source := subs[index].Source
		if _, ok := run.FinalReport(); !ok {
			failed++
			fmt.Fprintf(deps.errOut, "[%d/%d] Report failed: %s: %s\n", index+1, len(subs), source, run.Error)
			if !cfg.JSONReport {
				return
			}
		} else {
			fmt.Fprintf(deps.errOut, "[%d/%d] Report completed: %s\n", index+1, len(subs), source)
		}

		if err := outputReport(cfg, run, source, true, deps); err != nil {
			deps.logger.Error("report failed", "source", source, "error", err)
		}
	})

	fmt.Fprintf(deps.errOut, "\nBatch completed in %s\n", time.Since(startTime).Round(time.Millisecond))

	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d reports failed", failed, len(subs))
	}
	return nil
}

// saveRun records the run if a recorder is configured.
func saveRun(deps reportDeps, run *model.Run) {
	if deps.recorder == nil || run == nil {
		return
	}
	if err := deps.recorder.Record(context.Background(), run); err != nil {
		deps.logger.Warn("failed to record run", "run_id", run.ID, "error", err)
	}
}

// outputReport writes the run in the requested format to stdout or to the
// file selected by --output.
func outputReport(cfg *config.Config, run *model.Run, source string, batch bool, deps reportDeps) error {
	if cfg.ReportFile == "" {
		_, err := newReportWriter(cfg, deps.out).Write(run)
		return err
	}

	path, err := outputPath(cfg, source, batch)
	if err != nil {
		return err
	}

	// Plain markdown is the downloadable export.
	if !cfg.JSONReport && !cfg.MetadataReport && !cfg.RenderReport {
		written, err := report.Export(path, run)
		if err != nil {
			return err
		}
		fmt.Fprintf(deps.errOut, "Report saved to %s\n", written)
		return nil
	}

	// Create/overwrite the output file with owner-only permissions
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if _, err := newReportWriter(cfg, f).Write(run); err != nil {
		return err
	}
	fmt.Fprintf(deps.errOut, "Report saved to %s\n", path)
	return nil
}

// newReportWriter selects the writer for the configured format.
func newReportWriter(cfg *config.Config, w io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(w, report.WithPrettyPrint())
	case cfg.RenderReport:
		return report.NewTerminalWriter(w)
	default:
		return report.NewMarkdownWriter(w, report.WithMetadata(cfg.MetadataReport))
	}
}

// outputPath resolves the file a report is written to. A single report goes
// to --output itself, or to the export file name inside it when it is a
// directory. In batch mode --output is always a directory and each report is
// named after its image.
func outputPath(cfg *config.Config, source string, batch bool) (string, error) {
	fileName := report.ExportFileName
	if cfg.JSONReport {
		fileName = jsonExportFileName
	}

	dest := cfg.ReportFile
	if batch {
		stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
		fileName = stem + "_" + fileName
	} else if info, err := os.Stat(dest); err != nil || !info.IsDir() {
		if !strings.HasSuffix(dest, string(os.PathSeparator)) {
			dir := filepath.Dir(dest)
			if dir != "" && dir != "." {
				if err := os.MkdirAll(dir, 0750); err != nil {
					return "", fmt.Errorf("failed to create output directory: %w", err)
				}
			}
			return dest, nil
		}
	}

	if err := os.MkdirAll(dest, 0750); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return filepath.Join(dest, fileName), nil
}
