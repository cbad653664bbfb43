package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/pestadvisor/internal/model"
)

// Step is one stage of the report pipeline.
type Step interface {
	// Do executes the stage and stores its output on run.
	// A returned error fails the whole run.
	Do(ctx context.Context, run *model.Run) error

	// Name returns the step's name for logging and timing records.
	Name() string

	// State is the run state while the step executes.
	State() model.State
}

// modelNamer is implemented by steps that call a language model.
type modelNamer interface {
	Model() string
}

// Observer is notified after every state change of a run.
type Observer func(run *model.Run)

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	steps []Step

	logger *slog.Logger

	// stageTimeout bounds each step. Zero disables the per-step timeout.
	stageTimeout time.Duration

	observers []Observer
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithStageTimeout bounds every step with its own deadline.
func WithStageTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		p.stageTimeout = d
	}
}

// WithObserver registers a callback for state changes.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		if o != nil {
			p.observers = append(p.observers, o)
		}
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0, 3),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in sequence and moves run to done.
// On the first error the run is failed and the error returned; the
// remaining steps are not executed.
func (p *Pipeline) Execute(ctx context.Context, run *model.Run) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"run_id", run.ID,
				"reason", err,
			)
			p.fail(run, err)
			return err
		}

		if err := run.Transition(step.State()); err != nil {
			p.fail(run, err)
			return err
		}
		p.notify(run)

		p.logger.Info("executing step",
			"step", step.Name(),
			"run_id", run.ID,
		)

		rec := model.StageRecord{Stage: step.Name(), StartedAt: time.Now()}
		if m, ok := step.(modelNamer); ok {
			rec.Model = m.Model()
		}

		err := p.runStep(ctx, step, run)
		rec.Duration = time.Since(rec.StartedAt)

		if err != nil {
			rec.Error = err.Error()
			run.RecordStage(rec)
			p.logger.Error("step failed",
				"step", step.Name(),
				"run_id", run.ID,
				"error", err,
			)
			p.fail(run, err)
			return err
		}

		run.RecordStage(rec)
		p.logger.Debug("step completed",
			"step", step.Name(),
			"run_id", run.ID,
			"duration", rec.Duration,
		)
	}

	if err := run.Transition(model.StateDone); err != nil {
		p.fail(run, err)
		return err
	}
	p.notify(run)
	return nil
}

func (p *Pipeline) runStep(ctx context.Context, step Step, run *model.Run) error {
	if p.stageTimeout <= 0 {
		return step.Do(ctx, run)
	}
	stageCtx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()
	return step.Do(stageCtx, run)
}

func (p *Pipeline) fail(run *model.Run, err error) {
	run.Fail(err)
	p.notify(run)
}

func (p *Pipeline) notify(run *model.Run) {
	for _, o := range p.observers {
		o(run)
	}
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
