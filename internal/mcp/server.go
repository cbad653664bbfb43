package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nao1215/pestadvisor/internal/config"
	"github.com/nao1215/pestadvisor/internal/pipeline"
)

// ServerName is reported to MCP clients during initialization.
const ServerName = "pestadvisor"

// ToolGenerateReport is the name of the report tool.
const ToolGenerateReport = "generate_pest_report"

var generateReportToolDef = mcp.NewTool(ToolGenerateReport,
	mcp.WithDescription("Identify the insect in a photo and write a pest control report "+
		"with organic and chemical remedies, safety notes and links to resources. "+
		"Returns the report as markdown."),
	mcp.WithString("image_path",
		mcp.Required(),
		mcp.Description("Absolute path to a JPEG or PNG photo of the insect."),
	),
	mcp.WithString("location",
		mcp.Description("Where the insect was found, e.g. \"Pune, India\". Used to localize remedies."),
	),
	mcp.WithString("context",
		mcp.Description("Optional notes such as the affected crop or room."),
	),
)

// Options configures NewServer.
type Options struct {
	Generator   pipeline.Generator
	Config      *config.Config
	Credentials config.Credentials
	Recorder    Recorder
	Logger      *slog.Logger
	Version     string
}

// NewServer creates an MCP server with the report tool registered.
func NewServer(opts Options) *server.MCPServer {
	s := server.NewMCPServer(
		ServerName,
		opts.Version,
		server.WithToolCapabilities(false),
	)

	h := NewHandlers(opts)
	s.AddTool(generateReportToolDef, h.HandleGenerateReport)
	return s
}

// Run serves the tools over stdin and stdout until the client disconnects.
func Run(opts Options) error {
	return server.ServeStdio(NewServer(opts))
}
