package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/autoposter/internal/model"
)

// BatchRunner generates posters for several makes with bounded concurrency.
type BatchRunner struct {
	gen    *Generator
	limit  int
	logger *slog.Logger
}

// BatchOption configures a BatchRunner.
type BatchOption func(*BatchRunner)

// WithBatchLogger sets the logger.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchRunner) {
		b.logger = logger
	}
}

// WithConcurrency sets how many makes run at once. The default of one keeps
// runs strictly sequential.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchRunner) {
		if n > 0 {
			b.limit = n
		}
	}
}

// NewBatchRunner creates a BatchRunner.
func NewBatchRunner(gen *Generator, opts ...BatchOption) *BatchRunner {
	b := &BatchRunner{gen: gen, limit: 1, logger: discard()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run generates every request. Runs are returned in request order; a request
// that never started because the context ended has a nil entry. done, when
// non-nil, is called as each run finishes and must be safe for concurrent use.
func (b *BatchRunner) Run(ctx context.Context, reqs []Request, done func(run *model.Run, index int)) ([]*model.Run, error) {
	b.logger.Info("starting batch", "total", len(reqs), "concurrency", b.limit)
	start := time.Now()

	runs := make([]*model.Run, len(reqs))
	var (
		mu   sync.Mutex
		errs []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.limit)
	for i, req := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b.logger.Info("generating poster", "make", req.Make, "index", i+1, "total", len(reqs))

			run, err := b.gen.Generate(gctx, req)
			runs[i] = run
			if done != nil {
				done(run, i)
			}
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		errs = append(errs, err)
	}

	b.logger.Info("batch complete", "total", len(reqs), "elapsed", time.Since(start))
	return runs, errors.Join(errs...)
}
