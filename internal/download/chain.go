package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/nao1215/autoposter/internal/download"

// ErrNoURL is returned when there is nothing to download.
var ErrNoURL = errors.New("no image URL")

// Result is a saved image.
type Result struct {
	Path     string `json:"path"`
	Strategy string `json:"strategy"`
	Info     Info   `json:"info"`
}

// AttemptError is the failure of one strategy.
type AttemptError struct {
	Strategy string
	Err      error
}

func (e AttemptError) Error() string {
	return e.Strategy + ": " + e.Err.Error()
}

// ChainError is returned when every strategy failed.
type ChainError struct {
	URL      string
	Attempts []AttemptError
}

func (e *ChainError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Error())
	}
	return fmt.Sprintf("all download strategies failed for %s: %s", e.URL, strings.Join(parts, "; "))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *ChainError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// Chain tries strategies in order.
type Chain struct {
	strategies []Strategy
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Option configures a Chain.
type Option func(*Chain)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chain) {
		c.logger = logger
	}
}

// NewChain creates a Chain. Nil strategies are skipped.
func NewChain(strategies []Strategy, opts ...Option) *Chain {
	c := &Chain{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer: otel.Tracer(tracerName),
	}
	for _, s := range strategies {
		if s != nil {
			c.strategies = append(c.strategies, s)
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Strategies returns the names of the strategies in order.
func (c *Chain) Strategies() []string {
	names := make([]string, 0, len(c.strategies))
	for _, s := range c.strategies {
		names = append(names, s.Name())
	}
	return names
}

// Download saves rawURL to path. Any file already at path is removed first so
// a failed download never leaves a stale image behind.
func (c *Chain) Download(ctx context.Context, rawURL, path string) (Result, error) {
	ctx, span := c.tracer.Start(ctx, "download.chain",
		trace.WithAttributes(attribute.String("url", rawURL)))
	defer span.End()

	if rawURL == "" {
		return Result{}, ErrNoURL
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return Result{}, fmt.Errorf("failed to create asset directory: %w", err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.logger.Warn("failed to remove stale image", "path", path, "error", err)
	}

	chainErr := &ChainError{URL: rawURL}
	for _, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		data, err := s.Fetch(ctx, rawURL)
		if err != nil {
			c.logger.Debug("download strategy failed", "strategy", s.Name(), "error", err)
			chainErr.Attempts = append(chainErr.Attempts, AttemptError{Strategy: s.Name(), Err: err})
			continue
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return Result{}, fmt.Errorf("failed to write %s: %w", path, err)
		}
		res := Result{Path: path, Strategy: s.Name(), Info: Inspect(data)}
		span.SetAttributes(attribute.String("strategy", res.Strategy))
		c.logger.Info("image downloaded", "path", path, "strategy", res.Strategy, "bytes", res.Info.Size)
		return res, nil
	}
	span.RecordError(chainErr)
	return Result{}, chainErr
}
