package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"

	"github.com/nao1215/pestadvisor/internal/model"
)

// DefaultWordWrap is the terminal rendering width.
const DefaultWordWrap = 100

// TerminalWriter renders the report with ANSI styling.
type TerminalWriter struct {
	baseWriter

	style    string
	wordWrap int
}

// TerminalWriterOption configures a TerminalWriter.
type TerminalWriterOption func(*TerminalWriter)

// WithStyle selects a glamour standard style ("dark", "light", "notty",
// "ascii"). Empty detects the terminal background.
func WithStyle(style string) TerminalWriterOption {
	return func(w *TerminalWriter) {
		w.style = style
	}
}

// WithWordWrap sets the wrap width. Zero or less disables wrapping.
func WithWordWrap(width int) TerminalWriterOption {
	return func(w *TerminalWriter) {
		w.wordWrap = width
	}
}

// NewTerminalWriter creates a TerminalWriter that outputs to the given writer.
func NewTerminalWriter(output io.Writer, opts ...TerminalWriterOption) *TerminalWriter {
	w := &TerminalWriter{
		baseWriter: newBaseWriter(output),
		wordWrap:   DefaultWordWrap,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write renders the report of a completed run.
func (w *TerminalWriter) Write(run *model.Run) (int, error) {
	text, err := finalReport(run)
	if err != nil {
		return 0, err
	}

	opts := []glamour.TermRendererOption{
		glamour.WithEmoji(),
		glamour.WithWordWrap(w.wordWrap),
	}
	if w.style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(w.style))
	}

	renderer, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return 0, fmt.Errorf("failed to create terminal renderer: %w", err)
	}
	out, err := renderer.Render(text)
	if err != nil {
		return 0, fmt.Errorf("failed to render report: %w", err)
	}
	return io.WriteString(w.output, out)
}
