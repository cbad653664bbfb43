package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/pestadvisor/internal/config"
	"github.com/nao1215/pestadvisor/internal/model"
)

// fakeGenerator finishes runs without remote calls and tracks concurrency.
type fakeGenerator struct {
	delay   time.Duration
	failFor string

	active    atomic.Int32
	maxActive atomic.Int32
	calls     atomic.Int32
}

func (g *fakeGenerator) Generate(ctx context.Context, _ config.Credentials, bundle *model.RequestBundle) (*model.Run, error) {
	g.calls.Add(1)
	n := g.active.Add(1)
	defer g.active.Add(-1)
	for {
		cur := g.maxActive.Load()
		if n <= cur || g.maxActive.CompareAndSwap(cur, n) {
			break
		}
	}

	run := model.NewRun(bundle)
	select {
	case <-time.After(g.delay):
	case <-ctx.Done():
		run.Fail(ctx.Err())
		return run, ctx.Err()
	}

	if bundle.Location() == g.failFor {
		err := errors.New("identification failed")
		run.Fail(err)
		return run, err
	}
	run.Report = "report for " + bundle.Location()
	return run, nil
}

func submissions(t *testing.T, locations ...string) []Submission {
	t.Helper()
	subs := make([]Submission, len(locations))
	for i, loc := range locations {
		subs[i] = Submission{Source: loc + ".png", Bundle: newTestBundle(t, loc, "")}
	}
	return subs
}

func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	t.Run("creates processor with defaults", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(&fakeGenerator{})
		if bp.concurrency != config.DefaultBatchSize {
			t.Errorf("expected default concurrency %d, got %d", config.DefaultBatchSize, bp.concurrency)
		}
	})

	t.Run("applies WithConcurrency option", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(&fakeGenerator{}, WithConcurrency(5))
		if bp.concurrency != 5 {
			t.Errorf("expected concurrency 5, got %d", bp.concurrency)
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(&fakeGenerator{}, WithConcurrency(0))
		if bp.concurrency != config.DefaultBatchSize {
			t.Errorf("expected default concurrency, got %d", bp.concurrency)
		}
	})
}

func TestBatchProcessorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("keeps submission order and failed runs", func(t *testing.T) {
		t.Parallel()

		gen := &fakeGenerator{delay: 5 * time.Millisecond, failFor: "Lagos"}
		bp := NewBatchProcessor(gen, WithConcurrency(3))

		runs, err := bp.ProcessBatch(t.Context(), testCreds, submissions(t, "Delhi", "Lagos", "Lima"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(runs) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(runs))
		}
		if runs[0].Location != "Delhi" || runs[2].Location != "Lima" {
			t.Errorf("runs out of order: %s, %s", runs[0].Location, runs[2].Location)
		}
		if runs[1].State != model.StateFailed {
			t.Errorf("expected Lagos to fail, got %s", runs[1].State)
		}
	})

	t.Run("respects the concurrency limit", func(t *testing.T) {
		t.Parallel()

		gen := &fakeGenerator{delay: 10 * time.Millisecond}
		bp := NewBatchProcessor(gen, WithConcurrency(2))

		if _, err := bp.ProcessBatch(t.Context(), testCreds, submissions(t, "a", "b", "c", "d", "e")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := gen.maxActive.Load(); got > 2 {
			t.Errorf("expected at most 2 concurrent runs, saw %d", got)
		}
		if got := gen.calls.Load(); got != 5 {
			t.Errorf("expected 5 runs, got %d", got)
		}
	})

	t.Run("stops starting work after cancellation", func(t *testing.T) {
		t.Parallel()

		gen := &fakeGenerator{delay: time.Second}
		bp := NewBatchProcessor(gen, WithConcurrency(1))

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		_, err := bp.ProcessBatch(ctx, testCreds, submissions(t, "a", "b", "c"))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if got := gen.calls.Load(); got != 0 {
			t.Errorf("expected no runs to start, got %d", got)
		}
	})
}

func TestBatchProcessorProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{}
	bp := NewBatchProcessor(gen, WithConcurrency(4))

	var (
		mu   sync.Mutex
		seen = make(map[int]string)
	)
	err := bp.ProcessBatchWithCallback(t.Context(), testCreds, submissions(t, "x", "y"), func(run *model.Run, index int) {
		mu.Lock()
		defer mu.Unlock()
		seen[index] = run.Location
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen[0] != "x" || seen[1] != "y" {
		t.Errorf("unexpected callback results: %v", seen)
	}
}
