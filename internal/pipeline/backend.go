package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/autoposter/internal/catalog"
	"github.com/nao1215/autoposter/internal/config"
	"github.com/nao1215/autoposter/internal/download"
	"github.com/nao1215/autoposter/internal/extract"
	"github.com/nao1215/autoposter/internal/fetcher"
	"github.com/nao1215/autoposter/internal/imageresolve"
	"github.com/nao1215/autoposter/internal/session"
)

// Backend names.
const (
	BackendBrowser = "browser"
	BackendHTTP    = "http"
)

// Backend is the page source shared by every run of a process.
type Backend struct {
	// Fetcher loads catalog pages.
	Fetcher fetcher.Fetcher

	// Capturer takes screenshots for the last download tier. Nil without a
	// browser.
	Capturer download.Capturer

	// Kind is BackendBrowser or BackendHTTP.
	Kind string

	store   *session.Store
	closers []func() error
}

// NewBackend starts the backend cfg asks for. A browser that cannot be
// launched is logged and replaced by plain HTTP.
func NewBackend(ctx context.Context, cfg *config.Config, store *session.Store, logger *slog.Logger) (*Backend, error) {
	logger = orDiscard(logger)
	if store == nil {
		store = session.NewMemoryStore()
	}
	wait := fetcher.WaitPolicy{Attempts: cfg.WaitAttempts, Interval: cfg.WaitInterval}
	detector := fetcher.NewDetector(cfg.InterstitialPhrases)

	b := &Backend{store: store}
	if cfg.UseBrowser {
		bf, err := fetcher.NewBrowserFetcher(ctx, cfg.BaseURL,
			fetcher.WithBrowserLogger(logger),
			fetcher.WithBrowserSession(store),
			fetcher.WithBrowserWaitPolicy(wait),
			fetcher.WithBrowserDetector(detector),
			fetcher.WithBrowserTimeout(cfg.PageTimeout*2),
			fetcher.WithBrowserUserAgent(cfg.UserAgent),
			fetcher.WithHeadless(cfg.Headless),
			fetcher.WithChromePath(cfg.ChromePath),
		)
		if err == nil {
			b.Fetcher, b.Capturer, b.Kind = bf, bf, BackendBrowser
			b.closers = append(b.closers, bf.Close)
			logger.Info("using browser backend", "headless", cfg.Headless)
			return b, nil
		}
		logger.Warn("browser unavailable, falling back to HTTP", "error", err)
	}

	hf, err := fetcher.NewHTTPFetcher(cfg.BaseURL,
		fetcher.WithHTTPLogger(logger),
		fetcher.WithSession(store),
		fetcher.WithHTTPWaitPolicy(wait),
		fetcher.WithHTTPDetector(detector),
		fetcher.WithRateLimit(cfg.RateLimit),
		fetcher.WithHTTPTimeout(cfg.PageTimeout),
		fetcher.WithHTTPUserAgent(cfg.UserAgent),
		fetcher.WithHeaders(cfg.Headers),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP fetcher: %w", err)
	}
	b.Fetcher, b.Kind = hf, BackendHTTP
	b.closers = append(b.closers, hf.Close)
	logger.Info("using HTTP backend")
	return b, nil
}

// DownloadChain builds the image download tiers for this backend.
func (b *Backend) DownloadChain(cfg *config.Config, logger *slog.Logger) (*download.Chain, error) {
	headers := download.Headers{UserAgent: cfg.UserAgent, Referer: cfg.BaseURL}
	auth, err := download.NewAuthenticated(b.store, headers, cfg.ImageTimeout)
	if err != nil {
		return nil, err
	}
	strategies := []download.Strategy{
		download.NewDirect(headers, cfg.ImageTimeout),
		auth,
	}
	if b.Capturer != nil {
		strategies = append(strategies, download.NewScreenshot(b.Capturer, cfg.MinScreenshotBytes))
	}
	return download.NewChain(strategies, download.WithLogger(orDiscard(logger))), nil
}

// Close stops the backend and persists the session cookies.
func (b *Backend) Close() error {
	var errs []error
	for _, c := range b.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := b.store.Save(); err != nil {
		errs = append(errs, fmt.Errorf("failed to save cookies: %w", err))
	}
	return errors.Join(errs...)
}

// NewExtractionPipeline assembles the seven extraction steps on top of b.
// Pages are cached for the lifetime of the returned pipeline, so the specification
// extractor and the image resolver share one fetch of the detail page.
func NewExtractionPipeline(b *Backend, cfg *config.Config, logger *slog.Logger) (*Pipeline, error) {
	logger = orDiscard(logger)
	pages := fetcher.NewCache(b.Fetcher)

	nav, err := catalog.NewNavigator(pages, cfg.BaseURL,
		catalog.WithLogger(logger),
		catalog.WithDumper(catalog.NewDumper(cfg.DebugDir)),
	)
	if err != nil {
		return nil, err
	}
	chain, err := b.DownloadChain(cfg, logger)
	if err != nil {
		return nil, err
	}

	p := New(WithLogger(logger))
	p.AddSteps(
		NewResolveMakeStep(nav),
		NewListModelsStep(nav),
		NewSelectModelStep(logger),
		NewListSubmodelsStep(nav, logger),
		NewExtractSpecsStep(extract.New(pages, extract.WithLogger(logger))),
		NewResolveImageStep(imageresolve.New(pages, cfg.BaseURL, imageresolve.WithLogger(logger)), logger),
		NewDownloadImageStep(chain, cfg.AssetsDir, logger),
	)
	return p, nil
}
