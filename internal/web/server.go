package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nao1215/pestadvisor/internal/config"
	"github.com/nao1215/pestadvisor/internal/pipeline"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 5 * time.Second

// Options configures NewServer.
type Options struct {
	// Generator runs submissions. Required.
	Generator pipeline.Generator

	// Config supplies limits such as the maximum image size.
	Config *config.Config

	// Credentials are used for keys the user leaves blank in the form.
	Credentials config.Credentials

	// Recorder, when set, receives every finished run.
	Recorder Recorder

	Logger  *slog.Logger
	Version string
	Addr    string
}

// NewServer creates and configures the HTTP server for the web UI.
func NewServer(opts Options) (*http.Server, error) {
	if opts.Generator == nil {
		return nil, errors.New("web: generator is required")
	}
	if opts.Config == nil {
		opts.Config = config.NewConfig()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Addr == "" {
		opts.Addr = config.DefaultListenAddress
	}

	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("failed to create template sub-FS: %w", err)
	}
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to create static sub-FS: %w", err)
	}

	renderer, err := NewRenderer(templateSub, opts.Version)
	if err != nil {
		return nil, err
	}

	h := &Handlers{
		gen:      opts.Generator,
		cfg:      opts.Config,
		creds:    opts.Credentials,
		recorder: opts.Recorder,
		renderer: renderer,
		logger:   opts.Logger,
	}

	return &http.Server{
		Addr:              opts.Addr,
		Handler:           securityHeaders(newMux(h, staticSub)),
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

func newMux(h *Handlers, staticSub fs.FS) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.HandleIndex)
	mux.HandleFunc("POST /report", h.HandleReport)
	mux.HandleFunc("GET /report/{id}/download", h.HandleDownload)
	mux.HandleFunc("GET /healthz", h.HandleHealth)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))
	return mux
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'; img-src 'self' data:")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("web UI running", "url", "http://"+srv.Addr)
	if strings.HasPrefix(srv.Addr, "0.0.0.0") || strings.HasPrefix(srv.Addr, ":") || strings.Contains(srv.Addr, "[::]") {
		logger.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
