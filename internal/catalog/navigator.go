package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/autoposter/internal/fetcher"
	"github.com/nao1215/autoposter/internal/model"
)

// BrowsePath is the secondary index searched when the landing page has no
// exact match for a make.
const BrowsePath = "browse.php"

// Navigator walks the catalog through a Fetcher.
type Navigator struct {
	fetcher fetcher.Fetcher
	base    *url.URL
	dumper  *Dumper
	logger  *slog.Logger
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Navigator) {
		n.logger = logger
	}
}

// WithDumper sets where raw pages are saved when navigation comes up empty.
func WithDumper(d *Dumper) Option {
	return func(n *Navigator) {
		n.dumper = d
	}
}

// NewNavigator creates a Navigator for the catalog rooted at baseURL.
func NewNavigator(f fetcher.Fetcher, baseURL string, opts ...Option) (*Navigator, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	n := &Navigator{
		fetcher: f,
		base:    base,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// BaseURL returns the catalog root.
func (n *Navigator) BaseURL() *url.URL {
	return n.base
}

// ResolveMake returns the catalog URL of the make called name. The landing
// page is searched for an anchor whose text equals name, then the browse index
// for one whose text contains it, both ignoring case. When neither matches the
// browse page is dumped and a *NotFoundError is returned.
func (n *Navigator) ResolveMake(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &NotFoundError{Kind: "make", Name: name}
	}

	n.logger.Info("searching for make", "make", name)

	landing, doc, err := n.fetchDoc(ctx, n.base.String())
	if err != nil {
		return "", err
	}
	if u, ok := FindMakeExact(doc, n.base, name); ok {
		n.logger.Info("found make", "make", name, "url", u)
		return u, nil
	}
	n.logger.Debug("no exact make match on landing page", "make", name, "title", landing.Title)

	browse, doc, err := n.fetchDoc(ctx, Resolve(n.base, BrowsePath))
	if err != nil {
		return "", err
	}
	if u, ok := FindMakeContaining(doc, n.base, name); ok {
		n.logger.Info("found make in browse index", "make", name, "url", u)
		return u, nil
	}

	nf := &NotFoundError{Kind: "make", Name: name, Title: browse.Title}
	nf.DumpPath = n.dump(FailedSearchDump, browse.HTML)
	return "", nf
}

// ListModels returns the models listed on a make page. An empty result is not
// an error; the page is dumped so the layout can be inspected.
func (n *Navigator) ListModels(ctx context.Context, makeURL string) ([]model.CatalogEntry, error) {
	page, doc, err := n.fetchDoc(ctx, makeURL)
	if err != nil {
		return nil, err
	}

	models := ParseModels(doc, n.base)
	if len(models) == 0 {
		n.logger.Warn("no models found", "url", makeURL, "title", page.Title)
		n.dump(ModelsDump, page.HTML)
	}
	n.logger.Debug("listed models", "url", makeURL, "count", len(models))
	return models, nil
}

// ListSubmodels returns the accepted submodel blocks of a model page.
func (n *Navigator) ListSubmodels(ctx context.Context, modelURL string) ([]model.Submodel, error) {
	_, doc, err := n.fetchDoc(ctx, modelURL)
	if err != nil {
		return nil, err
	}

	subs := ParseSubmodels(doc, n.base)
	n.logger.Debug("listed submodels", "url", modelURL, "count", len(subs))
	return subs, nil
}

func (n *Navigator) fetchDoc(ctx context.Context, rawURL string) (*fetcher.Page, *goquery.Document, error) {
	page, err := n.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	doc, err := page.Document()
	if err != nil {
		return nil, nil, err
	}
	return page, doc, nil
}

func (n *Navigator) dump(name string, html []byte) string {
	path, err := n.dumper.Dump(name, html)
	if err != nil {
		n.logger.Warn("failed to dump page", "file", name, "error", err)
		return ""
	}
	if path != "" {
		n.logger.Info("dumped page for inspection", "path", path)
	}
	return path
}
