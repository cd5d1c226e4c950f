package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/autoposter/internal/model"
	"github.com/nao1215/autoposter/internal/poster"
)

// Request asks for the poster of one make.
type Request struct {
	Make  string
	Model string

	// Mock skips scraping and uses the canned record.
	Mock bool
}

// Factory creates a fresh pipeline for one run.
type Factory func() (*Pipeline, error)

// Generator turns requests into rendered posters. Extraction failures never
// escape it: the run falls back to the canned record and is marked as such.
type Generator struct {
	factory   Factory
	renderer  poster.Renderer
	countries poster.Countries
	logger    *slog.Logger
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithGeneratorLogger sets the logger.
func WithGeneratorLogger(logger *slog.Logger) GeneratorOption {
	return func(g *Generator) {
		g.logger = logger
	}
}

// WithCountries sets the make to country table.
func WithCountries(c poster.Countries) GeneratorOption {
	return func(g *Generator) {
		g.countries = c
	}
}

// NewGenerator creates a Generator.
func NewGenerator(factory Factory, renderer poster.Renderer, opts ...GeneratorOption) *Generator {
	g := &Generator{
		factory:   factory,
		renderer:  renderer,
		countries: poster.DefaultCountries(),
		logger:    discard(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate runs req and renders its poster. The returned error is non-nil
// only when the context was cancelled or the poster could not be rendered;
// the run is returned in every case.
func (g *Generator) Generate(ctx context.Context, req Request) (*model.Run, error) {
	run := model.NewRun(req.Make, req.Model)
	defer run.Finish()

	switch {
	case req.Mock:
		g.logger.Info("using mock data")
		run.Mock = true
		run.Poster = poster.Mock()
	default:
		data, err := g.extract(ctx, req, run)
		if err != nil {
			if ctx.Err() != nil {
				run.ErrorMessage = ctx.Err().Error()
				return run, ctx.Err()
			}
			g.logger.Warn("scraping failed, falling back to mock data", "make", req.Make, "error", err)
			run.Fail(err)
			data = poster.Mock()
		}
		run.Poster = data
	}

	path, err := g.renderer.Render(ctx, run.Poster)
	if err != nil {
		return run, err
	}
	run.ManifestPath = path
	return run, nil
}

func (g *Generator) extract(ctx context.Context, req Request, run *model.Run) (model.PosterData, error) {
	p, err := g.factory()
	if err != nil {
		return model.PosterData{}, err
	}
	ext := model.NewExtraction(req.Make, req.Model)
	err = p.Execute(ctx, ext)
	run.Absorb(ext)
	if err != nil {
		return model.PosterData{}, err
	}
	g.logger.Info("scraping completed", "make", req.Make, "model", run.ModelName, "resolved", ext.Specs.Resolved())
	return poster.FromExtraction(ext, g.countries), nil
}
