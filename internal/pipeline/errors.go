package pipeline

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrRemoteCall matches any stage failure caused by a model or search call.
	ErrRemoteCall = errors.New("remote call failed")

	// ErrEmptyOutput is returned when a stage answers with blank text.
	ErrEmptyOutput = errors.New("stage returned empty output")

	// ErrNoBundle is returned when a run reaches a step without a submission.
	ErrNoBundle = errors.New("run has no submission")
)

// StageError is the failure of one stage's remote call.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Is reports ErrRemoteCall for every stage failure except user cancellation.
func (e *StageError) Is(target error) bool {
	return target == ErrRemoteCall && !errors.Is(e.Err, context.Canceled)
}
