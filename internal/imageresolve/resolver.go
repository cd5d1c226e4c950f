package imageresolve

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/autoposter/internal/fetcher"
)

// Result is a resolved image.
type Result struct {
	// URL is absolute.
	URL string

	// Strategy names the strategy that found it.
	Strategy string
}

// Resolver finds the product photo of detail pages.
type Resolver struct {
	fetcher    fetcher.Fetcher
	baseURL    string
	strategies []Strategy
	logger     *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithStrategies replaces the strategy list.
func WithStrategies(s ...Strategy) Option {
	return func(r *Resolver) {
		r.strategies = s
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// New creates a Resolver that rebases relative sources on baseURL.
func New(f fetcher.Fetcher, baseURL string, opts ...Option) *Resolver {
	r := &Resolver{
		fetcher:    f,
		baseURL:    baseURL,
		strategies: DefaultStrategies(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve fetches detailURL and returns its photo. A page without a usable
// image yields false and no error.
func (r *Resolver) Resolve(ctx context.Context, detailURL, makeHint string) (Result, bool, error) {
	page, err := r.fetcher.Fetch(ctx, detailURL)
	if err != nil {
		return Result{}, false, fmt.Errorf("failed to fetch detail page: %w", err)
	}
	doc, err := page.Document()
	if err != nil {
		return Result{}, false, err
	}
	res, ok := r.ResolveDocument(doc, MakeSlug(makeHint, detailURL))
	return res, ok, nil
}

// ResolveDocument runs the strategies against doc.
func (r *Resolver) ResolveDocument(doc *goquery.Document, slug string) (Result, bool) {
	for _, s := range r.strategies {
		src, ok := s.Select(doc, slug)
		if !ok {
			r.logger.Debug("image strategy found nothing", "strategy", s.Name())
			continue
		}
		res := Result{URL: Rebase(r.baseURL, src), Strategy: s.Name()}
		r.logger.Debug("image resolved", "strategy", res.Strategy, "url", res.URL)
		return res, true
	}
	return Result{}, false
}
