package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/pestadvisor/internal/database"
	"github.com/nao1215/pestadvisor/internal/imageinfo"
	"github.com/nao1215/pestadvisor/internal/model"
)

func setupHistory(t *testing.T) (*database.RunLog, string, []*model.Run) {
	t.Helper()

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	imagePath := filepath.Join(t.TempDir(), "beetle.png")
	if err := os.WriteFile(imagePath, pngHeader, 0o600); err != nil {
		t.Fatal(err)
	}

	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	runs := make([]*model.Run, 0, 3)
	for i, loc := range []string{"Pune, India", "Ohio, USA", "Nairobi, Kenya"} {
		run := model.NewRun(nil)
		run.Location = loc
		run.StartedAt = base.Add(time.Duration(i) * time.Hour)
		digest := "other"
		if i == 0 {
			digest = imageinfo.Digest(pngHeader)
		}
		run.Image = &model.ImageMetadata{MIMEType: model.MIMETypePNG, Size: len(pngHeader), Digest: digest}
		if i == 2 {
			run.Fail(errors.New("synthesize stage failed: timeout"))
		} else {
			for _, s := range []model.State{model.StateIdentifying, model.StateResearching, model.StateSynthesizing, model.StateDone} {
				_ = run.Transition(s)
			}
		}
		if err := db.Record(t.Context(), run); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		runs = append(runs, run)
	}
	return db, imagePath, runs
}

func TestRunHistory(t *testing.T) {
	t.Parallel()

	t.Run("text lists recent runs newest first", func(t *testing.T) {
		t.Parallel()

		db, _, runs := setupHistory(t)
		var out bytes.Buffer
		if err := runHistory(t.Context(), db, historyOptions{}, &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		text := out.String()
		if !strings.Contains(text, "Recent runs (3)") {
			t.Errorf("missing title: %q", text)
		}
		newest := strings.Index(text, runs[2].ID)
		oldest := strings.Index(text, runs[0].ID)
		if newest < 0 || oldest < 0 || newest > oldest {
			t.Errorf("expected newest run first: %q", text)
		}
		if !strings.Contains(text, "error: synthesize stage failed: timeout") {
			t.Errorf("expected the failure to be listed: %q", text)
		}
	})

	t.Run("limit", func(t *testing.T) {
		t.Parallel()

		db, _, _ := setupHistory(t)
		var out bytes.Buffer
		if err := runHistory(t.Context(), db, historyOptions{limit: 1, json: true}, &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var entries []historyEntry
		if err := json.Unmarshal(out.Bytes(), &entries); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		if len(entries) != 1 {
			t.Errorf("expected 1 entry, got %d", len(entries))
		}
	})

	t.Run("by image digest", func(t *testing.T) {
		t.Parallel()

		db, imagePath, runs := setupHistory(t)
		var out bytes.Buffer
		if err := runHistory(t.Context(), db, historyOptions{image: imagePath, json: true}, &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var entries []historyEntry
		if err := json.Unmarshal(out.Bytes(), &entries); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		if len(entries) != 1 || entries[0].ID != runs[0].ID || entries[0].Location != "Pune, India" {
			t.Errorf("unexpected entries: %+v", entries)
		}
		if entries[0].State != "done" {
			t.Errorf("state = %q, want done", entries[0].State)
		}
	})

	t.Run("by id as markdown", func(t *testing.T) {
		t.Parallel()

		db, _, runs := setupHistory(t)
		var out bytes.Buffer
		if err := runHistory(t.Context(), db, historyOptions{id: runs[2].ID, markdown: true}, &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		md := out.String()
		for _, want := range []string{"# Run " + runs[2].ID, "Run ID", "Nairobi, Kenya", "## Errors", "timeout"} {
			if !strings.Contains(md, want) {
				t.Errorf("markdown does not contain %q:\n%s", want, md)
			}
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		t.Parallel()

		db, _, _ := setupHistory(t)
		err := runHistory(t.Context(), db, historyOptions{id: "nope"}, &bytes.Buffer{})
		if !errors.Is(err, database.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("empty log", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		defer db.Close()

		var out bytes.Buffer
		if err := runHistory(t.Context(), db, historyOptions{}, &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out.String(), "No runs found") {
			t.Errorf("unexpected output %q", out.String())
		}
	})
}
