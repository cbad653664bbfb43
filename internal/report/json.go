package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/pestadvisor/internal/model"
)

// JSONWriter outputs the run record in JSON format.
// Failed runs are written too; they carry the error and no stage output.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the run as a single JSON document followed by a newline.
func (w *JSONWriter) Write(run *model.Run) (int, error) {
	if run == nil {
		return 0, ErrNoReport
	}

	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(run, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(run)
	}
	if err != nil {
		return 0, err
	}

	return w.output.Write(append(data, '\n'))
}
