package report

import (
	"errors"
	"io"

	"github.com/nao1215/pestadvisor/internal/model"
)

// ErrNoReport is returned when a run has no final report to write.
var ErrNoReport = errors.New("run has no final report")

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs the run to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(run *model.Run) (int, error)
}

// MultiWriter writes to multiple Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the run to all configured Writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(run *model.Run) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(run)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// finalReport returns the run's report or ErrNoReport.
func finalReport(run *model.Run) (string, error) {
	if run == nil {
		return "", ErrNoReport
	}
	text, ok := run.FinalReport()
	if !ok {
		return "", ErrNoReport
	}
	return text, nil
}
