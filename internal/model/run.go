package model

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// StageRecord is the timing of one executed stage.
type StageRecord struct {
	Stage     string        `json:"stage"`
	Model     string        `json:"model,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// Run is the record of one submission passing through the pipeline.
// It is created per submission and discarded afterwards; only its metadata
// may be written to the run log.
type Run struct {
	// ID is a ULID, sortable by start time.
	ID string `json:"id"`

	// State is the current pipeline state.
	State State `json:"state"`

	// Location and Context echo the bundle so the JSON record is self-contained.
	Location string `json:"location"`
	Context  string `json:"context"`

	// Identification is the identifier model's markdown, verbatim.
	Identification string `json:"identification,omitempty"`

	// Resources is the research model's markdown link list, verbatim.
	Resources string `json:"resources,omitempty"`

	// Report is the final markdown report.
	Report string `json:"report,omitempty"`

	// SearchQueries are the queries the research stage sent to the search engine.
	SearchQueries []string `json:"search_queries,omitempty"`

	// Warnings are soft structure findings on stage outputs. Never fatal.
	Warnings []string `json:"warnings,omitempty"`

	// Stages records timing for each stage that ran.
	Stages []StageRecord `json:"stages,omitempty"`

	// Image describes the upload.
	Image *ImageMetadata `json:"image,omitempty"`

	// Error is the terminal error message of a failed run.
	Error string `json:"error,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`

	bundle *RequestBundle
}

// NewRun creates an idle run for the bundle.
func NewRun(bundle *RequestBundle) *Run {
	r := &Run{
		ID:        ulid.Make().String(),
		State:     StateIdle,
		StartedAt: time.Now(),
		bundle:    bundle,
	}
	if bundle != nil {
		r.Location = bundle.Location()
		r.Context = bundle.Context()
	}
	return r
}

// Bundle returns the submission this run was created for.
func (r *Run) Bundle() *RequestBundle {
	return r.bundle
}

// Transition moves the run to next. Moving to StateFailed should go through
// Fail so stage outputs are cleared.
func (r *Run) Transition(next State) error {
	if !r.State.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.State, next)
	}
	r.State = next
	if next.Terminal() {
		r.FinishedAt = time.Now()
	}
	return nil
}

// Fail moves the run to StateFailed, records err and drops every stage
// output. Calling Fail on a terminal run is a no-op.
func (r *Run) Fail(err error) {
	if r.State.Terminal() {
		return
	}
	r.State = StateFailed
	r.FinishedAt = time.Now()
	if err != nil {
		r.Error = err.Error()
	}
	r.Identification = ""
	r.Resources = ""
	r.Report = ""
}

// FinalReport returns the report of a completed run.
// The second result is false unless the run is in StateDone.
func (r *Run) FinalReport() (string, bool) {
	if r.State != StateDone {
		return "", false
	}
	return r.Report, true
}

// AddWarning records a soft warning.
func (r *Run) AddWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// RecordStage appends a stage timing record.
func (r *Run) RecordStage(rec StageRecord) {
	r.Stages = append(r.Stages, rec)
}

// Duration is the wall time from start to finish, or to now while running.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
