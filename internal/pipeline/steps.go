package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/nao1215/pestadvisor/internal/config"
	"github.com/nao1215/pestadvisor/internal/imageinfo"
	"github.com/nao1215/pestadvisor/internal/llm"
	"github.com/nao1215/pestadvisor/internal/model"
	"github.com/nao1215/pestadvisor/internal/prompt"
	"github.com/nao1215/pestadvisor/internal/search"
)

// Step names used in logs and stage records.
const (
	StepIdentify   = "identify"
	StepResearch   = "research"
	StepSynthesize = "synthesize"
)

// stepConfig holds settings shared by the stage steps.
type stepConfig struct {
	logger    *slog.Logger
	now       func() time.Time
	tempDir   string
	maxRounds int
}

// StepOption configures a stage step.
type StepOption func(*stepConfig)

// WithStepLogger sets the logger used for warnings.
func WithStepLogger(logger *slog.Logger) StepOption {
	return func(c *stepConfig) {
		c.logger = logger
	}
}

// WithClock sets the time source for the date line in the instructions.
func WithClock(now func() time.Time) StepOption {
	return func(c *stepConfig) {
		c.now = now
	}
}

// WithTempDir sets where the identification step stages the image.
// Empty means os.TempDir().
func WithTempDir(dir string) StepOption {
	return func(c *stepConfig) {
		c.tempDir = dir
	}
}

// WithMaxToolRounds bounds the research step's tool loop.
func WithMaxToolRounds(n int) StepOption {
	return func(c *stepConfig) {
		if n > 0 {
			c.maxRounds = n
		}
	}
}

func newStepConfig(opts []StepOption) stepConfig {
	c := stepConfig{
		logger:    slog.Default(),
		now:       time.Now,
		maxRounds: config.DefaultMaxToolRounds,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// warn records soft findings on the run and logs them.
func (c stepConfig) warn(run *model.Run, step string, warnings []string) {
	for _, w := range warnings {
		run.AddWarning("%s: %s", step, w)
		c.logger.Warn("stage output drift",
			"step", step,
			"run_id", run.ID,
			"warning", w,
		)
	}
}

// IdentifyStep asks a multimodal model to name the insect in the photo.
type IdentifyStep struct {
	client llm.Client
	model  string
	cfg    stepConfig
}

// NewIdentifyStep creates the identification stage.
func NewIdentifyStep(client llm.Client, modelName string, opts ...StepOption) *IdentifyStep {
	return &IdentifyStep{client: client, model: modelName, cfg: newStepConfig(opts)}
}

// Name returns the step name.
func (s *IdentifyStep) Name() string { return StepIdentify }

// State returns model.StateIdentifying.
func (s *IdentifyStep) State() model.State { return model.StateIdentifying }

// Model returns the model the step calls.
func (s *IdentifyStep) Model() string { return s.model }

// Do stages the image in a temporary file, sends it to the model and
// stores the answer verbatim. The temporary file is removed when Do
// returns, whether the call succeeded or not.
func (s *IdentifyStep) Do(ctx context.Context, run *model.Run) error {
	bundle := run.Bundle()
	if bundle == nil {
		return ErrNoBundle
	}

	if meta, err := imageinfo.Inspect(bundle.ImageData()); err == nil {
		run.Image = meta
	}

	path, err := stageImage(s.cfg.tempDir, bundle)
	if err != nil {
		return err
	}
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.cfg.logger.Warn("failed to remove staged image", "path", path, "error", err)
		}
	}()

	data, err := os.ReadFile(path) //nolint:gosec // path was created by os.CreateTemp above
	if err != nil {
		return fmt.Errorf("failed to read staged image: %w", err)
	}

	resp, err := s.client.Complete(ctx, &llm.Request{
		Model:  s.model,
		System: prompt.Identifier().Render(s.cfg.now()),
		Messages: []llm.Message{
			llm.UserMessage(prompt.IdentifyUserMessage, llm.Image{MIMEType: bundle.ImageMIMEType(), Data: data}),
		},
	})
	if err != nil {
		return &StageError{Stage: s.Name(), Err: err}
	}
	if strings.TrimSpace(resp.Text) == "" {
		return &StageError{Stage: s.Name(), Err: ErrEmptyOutput}
	}

	run.Identification = resp.Text
	s.cfg.warn(run, s.Name(), prompt.CheckIdentification(resp.Text))
	return nil
}

// stageImage writes the bundle's image to a new temporary file and returns
// its path. The extension follows the sniffed image type.
func stageImage(dir string, bundle *model.RequestBundle) (string, error) {
	f, err := os.CreateTemp(dir, "pestadvisor-*"+bundle.ImageExtension())
	if err != nil {
		return "", fmt.Errorf("failed to create temporary image file: %w", err)
	}
	path := f.Name()

	if _, err := f.Write(bundle.ImageData()); err != nil {
		_ = f.Close()       //nolint:errcheck // write error takes precedence
		_ = os.Remove(path) //nolint:errcheck // best effort
		return "", fmt.Errorf("failed to write temporary image file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path) //nolint:errcheck // best effort
		return "", fmt.Errorf("failed to close temporary image file: %w", err)
	}
	return path, nil
}

// ResearchStep lets a model run one web search and return resource links.
type ResearchStep struct {
	client   llm.Client
	model    string
	searcher search.Searcher
	cfg      stepConfig
}

// NewResearchStep creates the research stage.
func NewResearchStep(client llm.Client, modelName string, searcher search.Searcher, opts ...StepOption) *ResearchStep {
	return &ResearchStep{client: client, model: modelName, searcher: searcher, cfg: newStepConfig(opts)}
}

// Name returns the step name.
func (s *ResearchStep) Name() string { return StepResearch }

// State returns model.StateResearching.
func (s *ResearchStep) State() model.State { return model.StateResearching }

// Model returns the model the step calls.
func (s *ResearchStep) Model() string { return s.model }

// Do gives the model the identification plus location and context and a
// search_google tool that executes at most one query.
func (s *ResearchStep) Do(ctx context.Context, run *model.Run) error {
	tool := search.NewTool(s.searcher)

	req := &llm.Request{
		Model:  s.model,
		System: prompt.Researcher().Render(s.cfg.now()),
		Messages: []llm.Message{
			llm.UserMessage(prompt.ResearchInput(run.Location, run.Context, run.Identification)),
		},
		Tools: []llm.ToolDefinition{tool.Definition()},
	}

	result, err := llm.RunTools(ctx, s.client, req, tool, s.cfg.maxRounds)
	run.SearchQueries = tool.Queries()
	if err != nil {
		return &StageError{Stage: s.Name(), Err: err}
	}

	text := result.Response.Text
	if strings.TrimSpace(text) == "" {
		return &StageError{Stage: s.Name(), Err: ErrEmptyOutput}
	}

	var warnings []string
	if len(run.SearchQueries) == 0 {
		warnings = append(warnings, "model answered without searching")
	}
	if ferr := tool.Failure(); ferr != nil {
		warnings = append(warnings, "search unavailable: "+ferr.Error())
	}
	if n := tool.Refused(); n > 0 {
		warnings = append(warnings, fmt.Sprintf("%d extra search call(s) refused", n))
	}
	warnings = append(warnings, prompt.CheckResources(text)...)

	run.Resources = text
	s.cfg.warn(run, s.Name(), warnings)
	return nil
}

// SynthesizeStep writes the final report from the earlier stage outputs.
type SynthesizeStep struct {
	client llm.Client
	model  string
	cfg    stepConfig
}

// NewSynthesizeStep creates the synthesis stage.
func NewSynthesizeStep(client llm.Client, modelName string, opts ...StepOption) *SynthesizeStep {
	return &SynthesizeStep{client: client, model: modelName, cfg: newStepConfig(opts)}
}

// Name returns the step name.
func (s *SynthesizeStep) Name() string { return StepSynthesize }

// State returns model.StateSynthesizing.
func (s *SynthesizeStep) State() model.State { return model.StateSynthesizing }

// Model returns the model the step calls.
func (s *SynthesizeStep) Model() string { return s.model }

// Do sends the identification, location, context and resources to the
// advisor model and stores the report.
func (s *SynthesizeStep) Do(ctx context.Context, run *model.Run) error {
	resp, err := s.client.Complete(ctx, &llm.Request{
		Model:  s.model,
		System: prompt.Advisor().Render(s.cfg.now()),
		Messages: []llm.Message{
			llm.UserMessage(prompt.SynthesisInput(run.Identification, run.Location, run.Context, run.Resources)),
		},
	})
	if err != nil {
		return &StageError{Stage: s.Name(), Err: err}
	}
	if strings.TrimSpace(resp.Text) == "" {
		return &StageError{Stage: s.Name(), Err: ErrEmptyOutput}
	}

	run.Report = resp.Text
	s.cfg.warn(run, s.Name(), prompt.CheckReport(resp.Text))
	return nil
}
