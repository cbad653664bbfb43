package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// sensitiveKeys contains attribute keys whose values are never logged.
var sensitiveKeys = map[string]bool{
	// Provider credentials
	"api_key":        true,
	"apikey":         true,
	"api-key":        true,
	"model_api_key":  true,
	"search_api_key": true,
	"openai_api_key": true,
	"serpapi_key":    true,
	"gemini_api_key": true,

	// HTTP headers
	"authorization":       true,
	"x-api-key":           true,
	"x-goog-api-key":      true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,

	// Generic
	"password":    true,
	"secret":      true,
	"token":       true,
	"credential":  true,
	"credentials": true,
}

// sensitivePatterns match values that are secrets regardless of key name.
var sensitivePatterns = []*regexp.Regexp{
	// OpenAI keys: sk-..., sk-proj-...
	regexp.MustCompile(`^sk-[A-Za-z0-9_-]{16,}$`),

	// Google API keys
	regexp.MustCompile(`^AIza[0-9A-Za-z_-]{35}$`),

	// Bearer tokens
	regexp.MustCompile(`(?i)^bearer\s+.+`),

	// SerpAPI keys are 64 hex characters; also catches other long opaque keys.
	regexp.MustCompile(`^[a-zA-Z0-9]{32,}$`),
}

// queryKeyPattern finds credentials embedded in URL query strings,
// e.g. search request URLs that carry api_key=...
var queryKeyPattern = regexp.MustCompile(`(?i)([?&](?:api_key|key|apikey)=)[^&\s]+`)

// dataURIPattern matches inline base64 image payloads.
var dataURIPattern = regexp.MustCompile(`data:image/[a-z+.-]+;base64,[A-Za-z0-9+/=]+`)

// MaskValue is the string used to replace sensitive values.
const MaskValue = "***REDACTED***"

// ImagePlaceholder replaces inline image payloads, which are large and
// may carry location metadata.
const ImagePlaceholder = "[image data omitted]"

// SecureHandler wraps an slog.Handler and redacts API keys before records
// reach the underlying handler. Both keys and values are inspected, and
// URLs keep their shape with only the credential parameter masked.
type SecureHandler struct {
	handler slog.Handler
}

// NewSecureHandler creates a new SecureHandler wrapping the given handler.
// If handler is nil, slog.Default().Handler() is used.
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SecureHandler{handler: handler}
}

// Enabled delegates to the underlying handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle sanitizes the record's message and attributes and passes it on.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	sanitized := slog.NewRecord(r.Time, r.Level, scrubText(r.Message), r.PC)

	r.Attrs(func(a slog.Attr) bool {
		sanitized.AddAttrs(h.sanitizeAttr(a))
		return true
	})

	return h.handler.Handle(ctx, sanitized)
}

// WithAttrs returns a new handler with the given attributes sanitized and added.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sanitizedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		sanitizedAttrs[i] = h.sanitizeAttr(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(sanitizedAttrs)}
}

// WithGroup returns a new handler with the given group name.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name)}
}

func (h *SecureHandler) sanitizeAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		sanitizedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			sanitizedAttrs[i] = h.sanitizeAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(sanitizedAttrs...)}
	}

	keyLower := strings.ToLower(a.Key)
	if sensitiveKeys[keyLower] || containsSensitiveKeyword(keyLower) {
		return slog.String(a.Key, MaskValue)
	}

	switch a.Value.Kind() {
	case slog.KindString:
		strVal := a.Value.String()
		if isSensitiveValue(strVal) {
			return slog.String(a.Key, MaskValue)
		}
		if scrubbed := scrubText(strVal); scrubbed != strVal {
			return slog.String(a.Key, scrubbed)
		}
	case slog.KindAny:
		// Errors from HTTP clients often embed the request URL.
		if err, ok := a.Value.Any().(error); ok {
			msg := err.Error()
			if scrubbed := scrubText(msg); scrubbed != msg {
				return slog.String(a.Key, scrubbed)
			}
		}
	}

	return a
}

// scrubText masks credentials and image payloads inside free text.
func scrubText(s string) string {
	if strings.Contains(s, "=") {
		s = queryKeyPattern.ReplaceAllString(s, "${1}"+MaskValue)
	}
	if strings.Contains(s, "data:image/") {
		s = dataURIPattern.ReplaceAllString(s, ImagePlaceholder)
	}
	return s
}

// containsSensitiveKeyword checks if the key contains sensitive keywords.
// The bare "key" keyword is excluded: "run_key", "sort_key" and the like are
// not secrets. Credential key names are listed in sensitiveKeys instead.
func containsSensitiveKeyword(key string) bool {
	sensitiveKeywords := []string{
		"password", "secret", "token", "auth", "credential", "api_key", "apikey",
	}

	for _, keyword := range sensitiveKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

func isSensitiveValue(value string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// NewSecureLogger creates a text slog.Logger that redacts secrets.
// verbose selects Debug level; otherwise only warnings and errors are written.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, handlerOptions(verbose))))
}

// NewSecureJSONLogger is NewSecureLogger with JSON output.
// The web server uses it so request logs can be collected as structured data.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewJSONHandler(w, handlerOptions(verbose))))
}

func handlerOptions(verbose bool) *slog.HandlerOptions {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}
