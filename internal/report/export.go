package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/pestadvisor/internal/model"
)

// Export file name and MIME type offered by every surface.
const (
	ExportFileName = "insect_pest_control_report.md"
	ExportMIMEType = "text/markdown"
)

// ExportPath resolves where Export writes. An empty dest means
// ExportFileName in the current directory; an existing directory gets
// ExportFileName appended; anything else is used as the file path.
func ExportPath(dest string) string {
	if dest == "" {
		return ExportFileName
	}
	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		return filepath.Join(dest, ExportFileName)
	}
	return dest
}

// Export writes the plain markdown report to dest (see ExportPath) with
// owner-only permissions and returns the path written.
func Export(dest string, run *model.Run) (string, error) {
	var buf bytes.Buffer
	if _, err := NewMarkdownWriter(&buf).Write(run); err != nil {
		return "", err
	}

	path := ExportPath(dest)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}
