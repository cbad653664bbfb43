package web

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/nao1215/pestadvisor/internal/config"
	"github.com/nao1215/pestadvisor/internal/model"
	"github.com/nao1215/pestadvisor/internal/pipeline"
	"github.com/nao1215/pestadvisor/internal/report"
)

// Form field names.
const (
	fieldImage        = "image"
	fieldLocation     = "location"
	fieldContext      = "context"
	fieldModelAPIKey  = "model_api_key"
	fieldSearchAPIKey = "search_api_key"
)

// Messages shown to the user.
const (
	msgMissingModelKey  = "Please provide your model API key in the sidebar."
	msgMissingSearchKey = "Please provide your SerpAPI key in the sidebar."
	msgMissingImage     = "Please upload an insect image before generating the report."
	msgUnsupportedImage = "Please upload a JPG or PNG image."
	msgImageTooLarge    = "The image is too large."
	msgRemoteFailure    = "Report generation failed: "
)

// multipartOverhead is allowed on top of the image size for the text fields.
const multipartOverhead = 1 << 20

// maxKeptReports bounds how many finished reports stay downloadable.
const maxKeptReports = 16

// Recorder stores run metadata.
type Recorder interface {
	Record(ctx context.Context, run *model.Run) error
}

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	gen      pipeline.Generator
	cfg      *config.Config
	creds    config.Credentials
	recorder Recorder
	renderer *Renderer
	logger   *slog.Logger

	// busy serializes submissions.
	busy sync.Mutex

	// reports holds finished runs by ID, oldest first in order.
	mu      sync.Mutex
	reports map[string]*model.Run
	order   []string
}

// HandleIndex handles GET / and shows the empty form.
func (h *Handlers) HandleIndex(w http.ResponseWriter, _ *http.Request) {
	h.renderer.renderPage(w, h.logger, http.StatusOK, "index", h.formData("", "", ""))
}

// HandleReport handles POST /report and runs the pipeline.
func (h *Handlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxImageSize+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.renderFormError(w, http.StatusRequestEntityTooLarge, "", "", msgImageTooLarge)
			return
		}
		h.renderFormError(w, http.StatusBadRequest, "", "", "The form could not be read.")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	location := r.FormValue(fieldLocation)
	contextText := r.FormValue(fieldContext)

	creds := config.Credentials{
		ModelAPIKey:  r.FormValue(fieldModelAPIKey),
		SearchAPIKey: r.FormValue(fieldSearchAPIKey),
	}.Merge(h.creds)

	if err := creds.Validate(); err != nil {
		h.renderFormError(w, http.StatusBadRequest, location, contextText, userMessage(err))
		return
	}

	img, err := readImage(r)
	if err != nil {
		h.renderFormError(w, http.StatusBadRequest, location, contextText, userMessage(err))
		return
	}
	bundle, err := model.NewRequestBundle(img, location, contextText)
	if err != nil {
		h.renderFormError(w, http.StatusBadRequest, location, contextText, userMessage(err))
		return
	}

	h.busy.Lock()
	run, err := h.gen.Generate(r.Context(), creds, bundle)
	h.busy.Unlock()

	h.record(run)

	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, model.ErrImageTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		h.renderFormError(w, status, location, contextText, userMessage(err))
		return
	}

	text, _ := run.FinalReport()
	h.keep(run)

	h.renderer.renderPage(w, h.logger, http.StatusOK, "report", ReportPageData{
		FormData:     h.formData(location, contextText, ""),
		RunID:        run.ID,
		ReportHTML:   renderMarkdown(text),
		Warnings:     run.Warnings,
		DownloadName: report.ExportFileName,
	})
}

// HandleDownload handles GET /report/{id}/download and returns that run's
// report as a markdown attachment. Only reports rendered by this process are
// kept, and only the most recent ones.
func (h *Handlers) HandleDownload(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	run := h.reports[r.PathValue("id")]
	h.mu.Unlock()

	if run == nil {
		h.renderer.renderPage(w, h.logger, http.StatusNotFound, "error", ErrorPageData{
			PageData:   PageData{Title: "Not Found", Version: h.renderer.version},
			StatusCode: http.StatusNotFound,
			Message:    "Report not found.",
		})
		return
	}

	w.Header().Set("Content-Type", report.ExportMIMEType+"; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.ExportFileName+`"`)
	if _, err := report.NewMarkdownWriter(w).Write(run); err != nil {
		h.logger.Error("failed to write download", "run_id", run.ID, "error", err)
	}
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"status":"ok"}`+"\n")
}

// keep makes a finished run downloadable and evicts the oldest beyond
// maxKeptReports.
func (h *Handlers) keep(run *model.Run) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.reports == nil {
		h.reports = make(map[string]*model.Run)
	}
	h.reports[run.ID] = run
	h.order = append(h.order, run.ID)
	for len(h.order) > maxKeptReports {
		delete(h.reports, h.order[0])
		h.order = h.order[1:]
	}
}

func (h *Handlers) record(run *model.Run) {
	if h.recorder == nil || run == nil {
		return
	}
	if err := h.recorder.Record(context.Background(), run); err != nil {
		h.logger.Warn("failed to record run", "run_id", run.ID, "error", err)
	}
}

func (h *Handlers) formData(location, contextText, errMsg string) FormData {
	return FormData{
		PageData:        PageData{Title: "Insect Identifier & Pest Control Advisor", Version: h.renderer.version},
		Location:        location,
		Context:         contextText,
		ServerModelKey:  h.creds.HasModelAPIKey(),
		ServerSearchKey: h.creds.HasSearchAPIKey(),
		Error:           errMsg,
	}
}

func (h *Handlers) renderFormError(w http.ResponseWriter, status int, location, contextText, msg string) {
	h.renderer.renderPage(w, h.logger, status, "index", h.formData(location, contextText, msg))
}

// readImage returns the uploaded image, or model.ErrMissingImage when the
// field is absent or empty.
func readImage(r *http.Request) (model.Image, error) {
	file, header, err := r.FormFile(fieldImage)
	if errors.Is(err, http.ErrMissingFile) {
		return model.Image{}, model.ErrMissingImage
	}
	if err != nil {
		return model.Image{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return model.Image{}, err
	}
	return model.NewImage(header.Filename, data)
}

// userMessage maps an error to the text shown above the form.
func userMessage(err error) string {
	switch {
	case errors.Is(err, config.ErrMissingModelAPIKey):
		return msgMissingModelKey
	case errors.Is(err, config.ErrMissingSearchAPIKey):
		return msgMissingSearchKey
	case errors.Is(err, model.ErrMissingImage):
		return msgMissingImage
	case errors.Is(err, model.ErrUnsupportedImage):
		return msgUnsupportedImage
	case errors.Is(err, model.ErrImageTooLarge):
		return msgImageTooLarge
	default:
		return msgRemoteFailure + strings.TrimSpace(err.Error())
	}
}
