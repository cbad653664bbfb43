package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nao1215/pestadvisor/internal/config"
	"github.com/nao1215/pestadvisor/internal/imageinfo"
	"github.com/nao1215/pestadvisor/internal/model"
	"github.com/nao1215/pestadvisor/internal/pipeline"
)

// Error codes carried in tool error results.
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeMissingCredential = "MISSING_CREDENTIAL"
	CodeMissingImage      = "MISSING_IMAGE"
	CodeUnsupportedImage  = "UNSUPPORTED_IMAGE"
	CodeImageTooLarge     = "IMAGE_TOO_LARGE"
	CodeRemoteCall        = "REMOTE_CALL_FAILED"
	CodeCanceled          = "CANCELLED"
	CodeInternal          = "INTERNAL"
)

// Recorder stores run metadata.
type Recorder interface {
	Record(ctx context.Context, run *model.Run) error
}

// GenerateReportRequest represents the arguments for generate_pest_report.
type GenerateReportRequest struct {
	ImagePath string `json:"image_path"`
	Location  string `json:"location,omitempty"`
	Context   string `json:"context,omitempty"`
}

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	gen      pipeline.Generator
	cfg      *config.Config
	creds    config.Credentials
	recorder Recorder
	logger   *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(opts Options) *Handlers {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.NewConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		gen:      opts.Generator,
		cfg:      cfg,
		creds:    opts.Credentials,
		recorder: opts.Recorder,
		logger:   logger,
	}
}

// HandleGenerateReport handles the generate_pest_report tool call.
func (h *Handlers) HandleGenerateReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GenerateReportRequest](req)
	if err != nil {
		return errorResult(CodeInvalidRequest, err.Error()), nil
	}

	// Credentials are checked before the image so a misconfigured server
	// reports the same error regardless of the arguments.
	if err := h.creds.Validate(); err != nil {
		return resultForError(err), nil
	}

	img, err := imageinfo.ReadFile(input.ImagePath, h.cfg.MaxImageSize)
	if err != nil {
		return resultForError(err), nil
	}
	bundle, err := model.NewRequestBundle(img, input.Location, input.Context)
	if err != nil {
		return resultForError(err), nil
	}

	run, err := h.gen.Generate(ctx, h.creds, bundle)
	h.record(run)
	if err != nil {
		return resultForError(err), nil
	}

	text, ok := run.FinalReport()
	if !ok {
		return errorResult(CodeInternal, "the run finished without a report"), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (h *Handlers) record(run *model.Run) {
	if h.recorder == nil || run == nil {
		return
	}
	if err := h.recorder.Record(context.Background(), run); err != nil {
		h.logger.Warn("failed to record run", "run_id", run.ID, "error", err)
	}
}

// Result helpers

// resultForError maps a pipeline or input error to a coded tool error.
func resultForError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, config.ErrMissingCredential):
		return errorResult(CodeMissingCredential, err.Error())
	case errors.Is(err, model.ErrMissingImage):
		return errorResult(CodeMissingImage, err.Error())
	case errors.Is(err, model.ErrUnsupportedImage):
		return errorResult(CodeUnsupportedImage, err.Error())
	case errors.Is(err, model.ErrImageTooLarge):
		return errorResult(CodeImageTooLarge, err.Error())
	case errors.Is(err, context.Canceled):
		return errorResult(CodeCanceled, "the request was cancelled")
	case errors.Is(err, pipeline.ErrRemoteCall):
		return errorResult(CodeRemoteCall, err.Error())
	default:
		// Internal details such as file system paths are not exposed.
		return errorResult(CodeInternal, "an internal error occurred")
	}
}

// errorResult creates an MCP error result with IsError set so clients
// recognize failures.
func errorResult(code, message string) *mcp.CallToolResult {
	payload := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	}
	content, _ := json.Marshal(payload) //nolint:errcheck // map of strings always marshals
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}
