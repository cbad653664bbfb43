package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/pestadvisor/internal/config"
	"github.com/nao1215/pestadvisor/internal/database"
	"github.com/nao1215/pestadvisor/internal/imageinfo"
)

// defaultHistoryLimit is the number of runs listed without --limit.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [image]",
		Short: "List previous report runs",
		Long: `History lists runs recorded in the run log.

The run log keeps metadata only: state, location, timings, image digest
and the number of format warnings. Reports, context notes and API keys
are never stored.

Examples:
  # List the 20 most recent runs
  pestadvisor history

  # List every run made for the same photo
  pestadvisor history beetle.jpg

  # Show one run by ID
  pestadvisor history --id 01J9Z8X7V6T5S4R3Q2P1N0M9K8

  # Output as JSON or Markdown
  pestadvisor history --json
  pestadvisor history --markdown`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs to list")
	cmd.Flags().StringP("id", "i", "",
		"Show a single run by ID")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output history in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output history in Markdown format")

	return cmd
}

// historyOptions selects which runs are listed and how.
type historyOptions struct {
	limit    int
	id       string
	image    string
	json     bool
	markdown bool
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts := historyOptions{}
	var err error
	if opts.limit, err = cmd.Flags().GetInt("limit"); err != nil {
		return err
	}
	if opts.id, err = cmd.Flags().GetString("id"); err != nil {
		return err
	}
	if opts.json, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if opts.markdown, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if len(args) == 1 {
		opts.image = args[0]
	}

	// Validate arguments before opening the database
	if opts.json && opts.markdown {
		return errors.New("--json and --markdown cannot be combined")
	}
	if opts.id != "" && opts.image != "" {
		return errors.New("--id and an image argument cannot be combined")
	}

	db, err := database.Open(config.XDGDataDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open run log: %w", err)
	}
	defer db.Close()

	return runHistory(cmd.Context(), db, opts, cmd.OutOrStdout())
}

// runHistory loads the selected runs and prints them.
func runHistory(ctx context.Context, db *database.RunLog, opts historyOptions, out io.Writer) error {
	var (
		records []database.RunRecord
		title   string
	)
	switch {
	case opts.id != "":
		rec, err := db.Get(ctx, opts.id)
		if err != nil {
			return fmt.Errorf("failed to get run %s: %w", opts.id, err)
		}
		records = []database.RunRecord{*rec}
		title = "Run " + opts.id

	case opts.image != "":
		data, err := os.ReadFile(filepath.Clean(opts.image))
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
		records, err = db.ByDigest(ctx, imageinfo.Digest(data))
		if err != nil {
			return fmt.Errorf("failed to get run history: %w", err)
		}
		title = "Runs for " + filepath.Base(opts.image)

	default:
		limit := opts.limit
		if limit <= 0 {
			limit = defaultHistoryLimit
		}
		var err error
		records, err = db.Recent(ctx, limit)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		title = "Recent runs"
	}

	switch {
	case opts.json:
		return outputHistoryJSON(out, records)
	case opts.markdown:
		return outputHistoryMarkdown(out, title, records)
	default:
		return outputHistoryText(out, title, records)
	}
}

// historyEntry is the JSON form of a run log record.
type historyEntry struct {
	ID          string        `json:"id"`
	State       string        `json:"state"`
	Location    string        `json:"location"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at,omitzero"`
	Duration    time.Duration `json:"duration_ns"`
	Error       string        `json:"error,omitempty"`
	ImageDigest string        `json:"image_digest,omitempty"`
	ImageType   string        `json:"image_type,omitempty"`
	ImageSize   int           `json:"image_size,omitempty"`
	Warnings    int           `json:"warnings"`
	Stages      []stageEntry  `json:"stages,omitempty"`
}

type stageEntry struct {
	Stage    string        `json:"stage"`
	Model    string        `json:"model,omitempty"`
	Duration time.Duration `json:"duration_ns"`
	Error    string        `json:"error,omitempty"`
}

func outputHistoryJSON(out io.Writer, records []database.RunRecord) error {
	entries := make([]historyEntry, 0, len(records))
	for _, r := range records {
		e := historyEntry{
			ID:          r.ID,
			State:       r.State.String(),
			Location:    r.Location,
			StartedAt:   r.StartedAt,
			FinishedAt:  r.FinishedAt,
			Duration:    r.Duration,
			Error:       r.Error,
			ImageDigest: r.ImageDigest,
			ImageType:   r.ImageType,
			ImageSize:   r.ImageSize,
			Warnings:    r.Warnings,
		}
		for _, s := range r.Stages {
			e.Stages = append(e.Stages, stageEntry{Stage: s.Stage, Model: s.Model, Duration: s.Duration, Error: s.Error})
		}
		entries = append(entries, e)
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(entries)
}

func outputHistoryMarkdown(out io.Writer, title string, records []database.RunRecord) error {
	md := markdown.NewMarkdown(out)
	md.H1(title)
	md.PlainText("")

	if len(records) == 0 {
		md.PlainText("No runs found.")
		return md.Build()
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			"`" + r.ID + "`",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.State.String(),
			r.Location,
			r.Duration.Round(time.Second).String(),
			strconv.Itoa(r.Warnings),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Run ID", "Started", "State", "Location", "Duration", "Warnings"},
		Rows:   rows,
	})

	var failed []string
	for _, r := range records {
		if r.Error != "" {
			failed = append(failed, "`"+r.ID+"`: "+r.Error)
		}
	}
	if len(failed) > 0 {
		md.PlainText("")
		md.H2("Errors")
		md.PlainText("")
		md.BulletList(failed...)
	}

	return md.Build()
}

func outputHistoryText(out io.Writer, title string, records []database.RunRecord) error {
	if len(records) == 0 {
		fmt.Fprintln(out, "No runs found in the run log.")
		fmt.Fprintln(out, "\nUse 'pestadvisor report <image>' to generate a report.")
		return nil
	}

	fmt.Fprintf(out, "%s (%d):\n\n", title, len(records))
	fmt.Fprintf(out, "  %-26s  %-19s  %-8s  %-9s  %s\n", "ID", "Started", "State", "Duration", "Location")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 90))

	for _, r := range records {
		location := r.Location
		if location == "" {
			location = "-"
		}
		fmt.Fprintf(out, "  %-26s  %-19s  %-8s  %-9s  %s\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.State.String(),
			r.Duration.Round(time.Second).String(),
			location,
		)
		if r.Error != "" {
			fmt.Fprintf(out, "  %-26s  error: %s\n", "", r.Error)
		}
	}

	fmt.Fprintln(out, "\nUse 'pestadvisor history --id <id>' to show a single run.")
	return nil
}
