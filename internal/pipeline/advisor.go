package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/pestadvisor/internal/config"
	"github.com/nao1215/pestadvisor/internal/llm"
	"github.com/nao1215/pestadvisor/internal/model"
	"github.com/nao1215/pestadvisor/internal/search"
	"github.com/nao1215/pestadvisor/internal/transport"
)

// ClientFactory builds a language model client for one submission.
type ClientFactory func(ctx context.Context, apiKey string) (llm.Client, error)

// SearcherFactory builds a search client for one submission.
type SearcherFactory func(apiKey string) (search.Searcher, error)

// Generator produces a report run for one submission.
type Generator interface {
	Generate(ctx context.Context, creds config.Credentials, bundle *model.RequestBundle) (*model.Run, error)
}

// Advisor turns a submission into a pest control report.
// It is safe for concurrent use; every Generate call builds its own clients
// and pipeline.
type Advisor struct {
	cfg         *config.Config
	logger      *slog.Logger
	newClient   ClientFactory
	newSearcher SearcherFactory
	now         func() time.Time
	observers   []Observer
}

// AdvisorOption configures an Advisor.
type AdvisorOption func(*Advisor)

// WithAdvisorLogger sets the logger passed to the pipeline and its steps.
func WithAdvisorLogger(logger *slog.Logger) AdvisorOption {
	return func(a *Advisor) {
		a.logger = logger
	}
}

// WithClientFactory replaces the language model client constructor.
func WithClientFactory(f ClientFactory) AdvisorOption {
	return func(a *Advisor) {
		a.newClient = f
	}
}

// WithSearcherFactory replaces the search client constructor.
func WithSearcherFactory(f SearcherFactory) AdvisorOption {
	return func(a *Advisor) {
		a.newSearcher = f
	}
}

// WithAdvisorClock sets the time source for the instructions' date line.
func WithAdvisorClock(now func() time.Time) AdvisorOption {
	return func(a *Advisor) {
		a.now = now
	}
}

// WithRunObserver registers a callback for every state change of every run.
func WithRunObserver(o Observer) AdvisorOption {
	return func(a *Advisor) {
		if o != nil {
			a.observers = append(a.observers, o)
		}
	}
}

// NewAdvisor creates an Advisor. Without factory options, clients talk to
// the configured provider and SerpAPI through one shared HTTP client.
func NewAdvisor(cfg *config.Config, opts ...AdvisorOption) (*Advisor, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	a := &Advisor{
		cfg:    cfg,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.newClient == nil || a.newSearcher == nil {
		hc, err := transport.NewHTTPClient(transport.Options{
			Timeout:      cfg.StageTimeout,
			ProxyAddress: cfg.ProxyAddress,
			UserAgent:    cfg.UserAgent,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
		if a.newClient == nil {
			a.newClient = defaultClientFactory(cfg, hc)
		}
		if a.newSearcher == nil {
			a.newSearcher = defaultSearcherFactory(cfg, hc)
		}
	}
	return a, nil
}

func defaultClientFactory(cfg *config.Config, hc *http.Client) ClientFactory {
	return func(ctx context.Context, apiKey string) (llm.Client, error) {
		return llm.New(ctx, llm.Options{
			Provider:   cfg.Provider,
			APIKey:     apiKey,
			BaseURL:    cfg.EffectiveBaseURL(),
			HTTPClient: hc,
		})
	}
}

func defaultSearcherFactory(cfg *config.Config, hc *http.Client) SearcherFactory {
	return func(apiKey string) (search.Searcher, error) {
		return search.NewClient(apiKey,
			search.WithHTTPClient(hc),
			search.WithNumResults(cfg.MaxSearchResults),
		)
	}
}

// Preflight checks the submission's preconditions: credentials first, then
// the image. It never touches the network.
func (a *Advisor) Preflight(creds config.Credentials, bundle *model.RequestBundle) error {
	if err := creds.Validate(); err != nil {
		return err
	}
	if bundle == nil || bundle.ImageSize() == 0 {
		return model.ErrMissingImage
	}
	if a.cfg.MaxImageSize > 0 && int64(bundle.ImageSize()) > a.cfg.MaxImageSize {
		return fmt.Errorf("%w: %d bytes, limit is %d", model.ErrImageTooLarge, bundle.ImageSize(), a.cfg.MaxImageSize)
	}
	return nil
}

// Generate runs the three stages for one submission. The returned run is
// never nil; on error it is in the failed state and holds no stage output.
func (a *Advisor) Generate(ctx context.Context, creds config.Credentials, bundle *model.RequestBundle) (*model.Run, error) {
	run := model.NewRun(bundle)

	if err := a.Preflight(creds, bundle); err != nil {
		a.logger.Warn("submission rejected", "run_id", run.ID, "error", err)
		a.failEarly(run, err)
		return run, err
	}

	client, err := a.newClient(ctx, creds.ModelAPIKey)
	if err != nil {
		err = fmt.Errorf("failed to create model client: %w", err)
		a.failEarly(run, err)
		return run, err
	}
	searcher, err := a.newSearcher(creds.SearchAPIKey)
	if err != nil {
		err = fmt.Errorf("failed to create search client: %w", err)
		a.failEarly(run, err)
		return run, err
	}

	p := a.newPipeline(client, searcher)
	if err := p.Execute(ctx, run); err != nil {
		return run, err
	}

	a.logger.Info("report generated",
		"run_id", run.ID,
		"duration", run.Duration(),
		"warnings", len(run.Warnings),
	)
	return run, nil
}

func (a *Advisor) failEarly(run *model.Run, err error) {
	run.Fail(err)
	for _, o := range a.observers {
		o(run)
	}
}

// newPipeline assembles identify → research → synthesize.
func (a *Advisor) newPipeline(client llm.Client, searcher search.Searcher) *Pipeline {
	models := a.cfg.EffectiveModels()
	stepOpts := []StepOption{
		WithStepLogger(a.logger),
		WithClock(a.now),
		WithTempDir(a.cfg.TempDir),
		WithMaxToolRounds(a.cfg.MaxToolRounds),
	}

	opts := []Option{
		WithLogger(a.logger),
		WithStageTimeout(a.cfg.StageTimeout),
	}
	for _, o := range a.observers {
		opts = append(opts, WithObserver(o))
	}

	p := New(opts...)
	p.AddSteps(
		NewIdentifyStep(client, models.Identifier, stepOpts...),
		NewResearchStep(client, models.Researcher, searcher, stepOpts...),
		NewSynthesizeStep(client, models.Synthesizer, stepOpts...),
	)
	return p
}
