package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"

	"github.com/nao1215/pestadvisor/internal/model"
)

// MarkdownWriter outputs the report as markdown. Without options the output
// is byte-identical to the generated report.
type MarkdownWriter struct {
	baseWriter

	// metadata appends a run details section after the report.
	metadata bool
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithMetadata appends run details (models, timings, search query,
// warnings) after the report.
func WithMetadata(on bool) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.metadata = on
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report of a completed run.
func (w *MarkdownWriter) Write(run *model.Run) (int, error) {
	text, err := finalReport(run)
	if err != nil {
		return 0, err
	}

	if !w.metadata {
		return io.WriteString(w.output, text)
	}

	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	n, err := io.WriteString(w.output, text+"\n")
	if err != nil {
		return n, err
	}

	md := markdown.NewMarkdown(w.output)
	writeDetails(md, run)
	return n + len(md.String()), md.Build()
}

// writeDetails renders the run details appendix.
func writeDetails(md *markdown.Markdown, run *model.Run) {
	md.HorizontalRule()
	md.H2("Run Details")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + run.ID + "`"},
			{"Generated", run.FinishedAt.Format("2006-01-02 15:04:05 MST")},
			{"Location", run.Location},
			{"Context", run.Context},
			{"Duration", run.Duration().Round(time.Millisecond).String()},
		},
	})
	md.PlainText("")

	if len(run.Stages) > 0 {
		rows := make([][]string, 0, len(run.Stages))
		for _, s := range run.Stages {
			rows = append(rows, []string{s.Stage, s.Model, s.Duration.Round(time.Millisecond).String()})
		}
		md.H3("Stages")
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header: []string{"Stage", "Model", "Duration"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if len(run.SearchQueries) > 0 {
		md.H3("Search Query")
		md.PlainText("")
		quoted := make([]string, len(run.SearchQueries))
		for i, q := range run.SearchQueries {
			quoted[i] = "`" + q + "`"
		}
		md.BulletList(quoted...)
		md.PlainText("")
	}

	if run.Image != nil {
		md.H3("Image")
		md.PlainText("")
		rows := [][]string{
			{"Type", run.Image.MIMEType},
			{"Size", strconv.Itoa(run.Image.Size) + " bytes"},
			{"BLAKE2b-256", "`" + run.Image.Digest + "`"},
		}
		if !run.Image.CapturedAt.IsZero() {
			rows = append(rows, []string{"Captured", run.Image.CapturedAt.Format("2006-01-02 15:04:05")})
		}
		if camera := strings.TrimSpace(run.Image.CameraMake + " " + run.Image.CameraModel); camera != "" {
			rows = append(rows, []string{"Camera", camera})
		}
		md.Table(markdown.TableSet{Header: []string{"Property", "Value"}, Rows: rows})
		md.PlainText("")
		if run.Image.HasGPS {
			md.Cautionf("The uploaded photo carries GPS coordinates. They were not sent anywhere except with the image itself.")
			md.PlainText("")
		}
	}

	if len(run.Warnings) > 0 {
		md.Warningf("The generated text deviated from the requested format (%d finding(s)).", len(run.Warnings))
		md.PlainText("")
		md.BulletList(run.Warnings...)
		md.PlainText("")
	}
}
