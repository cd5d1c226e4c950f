package pipeline

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nao1215/autoposter/internal/model"
)

const tracerName = "github.com/nao1215/autoposter/internal/pipeline"

// Step is one stage of an extraction.
type Step interface {
	// Do advances ext. Failures that leave later steps nothing to work with
	// are returned; anything recoverable is recorded in ext and nil returned.
	Do(ctx context.Context, ext *model.Extraction) error

	// Name returns the step name for logging.
	Name() string
}

// Pipeline executes steps in order.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
	tracer trace.Tracer

	// continueOnError keeps running after a failed step.
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError makes the pipeline run every step even after one fails.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddStep appends a step.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends several steps.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs every step against ext. Cancellation is checked between
// steps. The first step error is returned unless the pipeline continues on
// error; either way it is recorded in ext.
func (p *Pipeline) Execute(ctx context.Context, ext *model.Extraction) error {
	ctx, span := p.tracer.Start(ctx, "pipeline.execute",
		trace.WithAttributes(attribute.String("make", ext.Make)))
	defer span.End()

	var firstErr error
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled", "step", step.Name(), "reason", err)
			return err
		}

		p.logger.Info("executing step", "step", step.Name(), "make", ext.Make)
		err := step.Do(ctx, ext)
		ext.PerformedSteps = append(ext.PerformedSteps, step.Name())
		if err == nil {
			p.logger.Debug("step completed", "step", step.Name(), "make", ext.Make)
			continue
		}

		p.logger.Error("step failed", "step", step.Name(), "make", ext.Make, "error", err)
		ext.AddError(step.Name(), err)
		span.RecordError(err)
		if firstErr == nil {
			firstErr = err
		}
		if !p.continueOnError {
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}
	return firstErr
}

// StepCount returns the number of steps.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
