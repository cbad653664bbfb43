package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/pestadvisor/internal/config"
	"github.com/nao1215/pestadvisor/internal/model"
	"golang.org/x/sync/errgroup"
)

// Submission is one image with its location and context, ready to run.
type Submission struct {
	// Source names the submission in logs, usually the image path.
	Source string

	Bundle *model.RequestBundle
}

// BatchProcessor runs independent submissions concurrently.
// Each submission gets its own run; one failure does not stop the others.
type BatchProcessor struct {
	generator Generator

	// concurrency is the maximum number of submissions in flight.
	concurrency int

	logger *slog.Logger

	results []*model.Run
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent submissions.
// Default is config.DefaultBatchSize (sequential).
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(generator Generator, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		generator:   generator,
		concurrency: config.DefaultBatchSize,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch runs every submission with the same credentials.
// Runs are returned in submission order, failed ones included. The error
// is non-nil only when ctx was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, creds config.Credentials, subs []Submission) ([]*model.Run, error) {
	bp.logger.Info("starting batch processing",
		"total_submissions", len(subs),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()
	bp.results = make([]*model.Run, len(subs))

	err := bp.ProcessBatchWithCallback(ctx, creds, subs, func(run *model.Run, index int) {
		bp.mu.Lock()
		bp.results[index] = run
		bp.mu.Unlock()
	})

	bp.logger.Info("batch processing complete",
		"total_submissions", len(subs),
		"elapsed", time.Since(startTime),
	)

	return bp.results, err
}

// ProcessBatchWithCallback runs every submission and calls callback with
// each finished run and its index. callback is invoked from worker
// goroutines and must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	creds config.Credentials,
	subs []Submission,
	callback func(run *model.Run, index int),
) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, sub := range subs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			bp.logger.Info("processing submission",
				"source", sub.Source,
				"index", i+1,
				"total", len(subs),
			)

			run, err := bp.generator.Generate(ctx, creds, sub.Bundle)
			if err != nil {
				bp.logger.Warn("submission failed",
					"source", sub.Source,
					"error", err,
				)
			}

			callback(run, i)
			return nil
		})
	}

	return g.Wait()
}
