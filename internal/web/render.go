package web

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
}

// FormData is the template data for the form page.
type FormData struct {
	PageData

	// Location and Context are echoed back after an error.
	Location string
	Context  string

	// ServerModelKey and ServerSearchKey tell the user that a blank key
	// field falls back to the server's configuration.
	ServerModelKey  bool
	ServerSearchKey bool

	// Error is shown above the form.
	Error string
}

// ReportPageData is the template data for a finished report.
type ReportPageData struct {
	FormData

	RunID        string
	ReportHTML   template.HTML
	Warnings     []string
	DownloadName string
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// markdownRenderer converts reports to HTML. Raw HTML in the input is
// escaped, not passed through.
var markdownRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string) (*Renderer, error) {
	layout, err := template.New("layout").ParseFS(templateFS, "layout.html", "form.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	pages := map[string]string{
		"index":  "index.html",
		"report": "report.html",
		"error":  "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t, err := layout.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templateFS, file); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file, err)
		}
		templates[name] = t
	}

	return &Renderer{templates: templates, version: version}, nil
}

// renderPage renders a named page template with the given status.
func (r *Renderer) renderPage(w http.ResponseWriter, logger *slog.Logger, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		logger.Error("template not found", "template", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		logger.Error("template execution failed", "template", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderMarkdown converts markdown text to HTML using goldmark.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := markdownRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(md) + "</pre>") //nolint:gosec // escaped above
	}
	return template.HTML(buf.String()) //nolint:gosec // goldmark escapes raw HTML by default
}
