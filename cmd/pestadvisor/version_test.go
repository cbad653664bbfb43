package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionHelpers(t *testing.T) {
	t.Parallel()

	// Each helper falls back to a placeholder, never to an empty string.
	for name, fn := range map[string]func() string{
		"getVersion": getVersion,
		"getCommit":  getCommit,
		"getDate":    getDate,
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if fn() == "" {
				t.Errorf("%s() returned empty string", name)
			}
		})
	}
}

func TestNewVersionCmd(t *testing.T) {
	t.Parallel()

	t.Run("command has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd := NewVersionCmd(); cmd.Use != "version" {
			t.Errorf("expected Use to be 'version', got %q", cmd.Use)
		}
	})

	t.Run("command outputs version info", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		cmd := NewVersionCmd()
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"pestadvisor version", "commit:", "built:"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q, got %q", want, output)
			}
		}
	})
}
